package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/syncbridge/filesync/internal/event"
)

// transferOutbound invokes the per-kind §4.5 call for a single local
// change, then appends it to the history log on success (done by the
// caller, which collects the shipped subset).
func (p *Pipeline) transferOutbound(ctx context.Context, e event.Event) error {
	switch e.Kind {
	case event.KindModify:
		target := e.Path
		if from, to, ok := event.SplitRename(e.Path); ok {
			if err := p.client.Rename(ctx, from, to); err != nil {
				return err
			}

			target = to
		}

		f, err := os.Open(p.localPath(target))
		if err != nil {
			if os.IsNotExist(err) {
				// The file was already removed again before this cycle
				// ran; nothing to upload.
				return nil
			}

			return fmt.Errorf("pipeline: open %s: %w", target, err)
		}
		defer f.Close()

		return p.client.Modify(ctx, target, f)

	case event.KindRemove:
		return p.client.Remove(ctx, e.Path)

	case event.KindRename:
		from, to, ok := event.SplitRename(e.Path)
		if !ok {
			return fmt.Errorf("pipeline: malformed rename path %q", e.Path)
		}

		return p.client.Rename(ctx, from, to)

	default:
		return fmt.Errorf("pipeline: unexpected outbound kind %s", e.Kind)
	}
}

// applyInbound mirrors a server-originated event onto the local sync root
// (spec.md §4.5 "the client performs the mirrored local filesystem
// action"). A Modify event whose path carries a rename
// (JoinRename(p, rewritten) per the compactor's dominance-pass rule 3)
// is applied as a rename followed by a content write.
func (p *Pipeline) applyInbound(ctx context.Context, e event.Event) error {
	switch e.Kind {
	case event.KindModify:
		target := e.Path
		if from, to, ok := event.SplitRename(e.Path); ok {
			if err := p.renameLocal(from, to); err != nil {
				return err
			}

			target = to
		}

		return p.downloadInto(ctx, target)

	case event.KindRemove:
		return os.RemoveAll(p.localPath(e.Path))

	case event.KindRename:
		from, to, ok := event.SplitRename(e.Path)
		if !ok {
			return fmt.Errorf("pipeline: malformed rename path %q", e.Path)
		}

		return p.renameLocal(from, to)

	default:
		return fmt.Errorf("pipeline: unexpected inbound kind %s", e.Kind)
	}
}

func (p *Pipeline) downloadInto(ctx context.Context, path string) error {
	body, err := p.client.Download(ctx, path)
	if err != nil {
		return err
	}
	defer body.Close()

	local := p.localPath(path)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("pipeline: mkdir for %s: %w", path, err)
	}

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("pipeline: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("pipeline: write %s: %w", path, err)
	}

	return nil
}

func (p *Pipeline) renameLocal(from, to string) error {
	dst := p.localPath(to)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("pipeline: mkdir for %s: %w", to, err)
	}

	if err := os.Rename(p.localPath(from), dst); err != nil {
		return fmt.Errorf("pipeline: rename %s -> %s: %w", from, to, err)
	}

	return nil
}

func (p *Pipeline) localPath(relative string) string {
	return filepath.Join(p.cfg.SyncRoot, filepath.FromSlash(relative))
}
