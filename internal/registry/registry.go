// Package registry implements the source registry (C3): URI-driven
// dispatch to a source-scan connector, and compilation of FilterCondition
// values into SQL WHERE fragments.
package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/kallahq/kalla/internal/model"
	"github.com/kallahq/kalla/internal/scan"
)

// SourceKind enumerates the connector a URI dispatches to, per §4.3's table.
type SourceKind int

// Source kinds.
const (
	KindRelational SourceKind = iota
	KindObjectStoreCSV
	KindLocalCSV
	KindLocalColumnar
)

// Registration is what C3 hands back to the job runner: the connector's
// output plus the row count, if known at registration time ("0" means
// "unknown — query later", per §4.3).
type Registration struct {
	Kind        SourceKind
	RowCount    int64
	Relational  *scan.PartitionedRelationalTable
	ObjectStore *scan.ObjectStoreCsvTable
	// LocalPath carries the filesystem path for KindLocalCSV/KindLocalColumnar,
	// which delegate entirely to the engine's builtin reader and therefore
	// have no Kalla-owned provider.
	LocalPath string
}

// Detect classifies a source URI per §4.3's dispatch table.
func Detect(uri string) SourceKind {
	switch {
	case strings.HasPrefix(uri, "postgresql://"):
		return KindRelational
	case strings.HasPrefix(uri, "s3://") && strings.HasSuffix(uri, ".csv"):
		return KindObjectStoreCSV
	case strings.HasSuffix(uri, ".csv"):
		return KindLocalCSV
	default:
		return KindLocalColumnar
	}
}

// Register decides the connector for uri and constructs it, compiling
// filters to a SQL WHERE fragment where the connector supports one
// (relational sources only, per §4.3).
func Register(ctx context.Context, uri string, numPartitions int, filters []model.FilterCondition, objCfg scan.ObjectStoreConfig) (*Registration, error) {
	switch Detect(uri) {
	case KindRelational:
		return registerRelational(ctx, uri, numPartitions, filters)
	case KindObjectStoreCSV:
		t, err := scan.NewObjectStoreCsvTable(ctx, uri, numPartitions, objCfg)
		if err != nil {
			return nil, fmt.Errorf("op=registry.register: %w", err)
		}
		return &Registration{Kind: KindObjectStoreCSV, RowCount: 0, ObjectStore: t}, nil
	case KindLocalCSV:
		return &Registration{Kind: KindLocalCSV, RowCount: 0, LocalPath: uri}, nil
	default:
		return &Registration{Kind: KindLocalColumnar, RowCount: 0, LocalPath: uri}, nil
	}
}

// registerRelational strips query params to form the connection string
// (the "table" param names the source table) and compiles filters into a
// WHERE body.
func registerRelational(ctx context.Context, uri string, numPartitions int, filters []model.FilterCondition) (*Registration, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("op=registry.register: %w", err)
	}
	table := u.Query().Get("table")
	if table == "" {
		return nil, fmt.Errorf("op=registry.register: postgresql:// uri missing table= query param")
	}
	connString := *u
	connString.RawQuery = ""

	where := CompileFilters(filters)

	t, err := scan.NewPartitionedRelationalTable(ctx, connString.String(), table, numPartitions, "", where)
	if err != nil {
		return nil, fmt.Errorf("op=registry.register: %w", err)
	}
	return &Registration{Kind: KindRelational, RowCount: t.RowCount(), Relational: t}, nil
}
