package migration

import (
	"context"
	"path"
	"sort"

	s3store "github.com/cinemalab/cinema-data/internal/adapters/s3"
)

type Lister interface {
	List(ctx context.Context, prefix string) ([]s3store.ObjectInfo, error)
}

// ListBackups lists backup objects, newest first. Empty source or table
// widen the listing.
func ListBackups(ctx context.Context, l Lister, folder, source, table string) ([]s3store.ObjectInfo, error) {
	prefix := folder
	if source != "" {
		prefix = path.Join(prefix, source)
		if table != "" {
			prefix = path.Join(prefix, table)
		}
	}
	objs, err := l.List(ctx, prefix+"/")
	if err != nil {
		return nil, err
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].LastModified.After(objs[j].LastModified) })
	return objs, nil
}
