package scan

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreConfig carries the env-sourced object-store credentials of
// §3/§6 (REGION, ACCESS_KEY, SECRET_KEY, ENDPOINT_URL, ALLOW_HTTP).
type ObjectStoreConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
	AllowHTTP bool
}

func (c ObjectStoreConfig) newClient() (*minio.Client, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: !c.AllowHTTP,
		Region: c.Region,
	})
}

// splitBucketKey parses an s3://bucket/key/path.csv URI.
func splitBucketKey(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("op=scan.objectstore.parseURI: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("op=scan.objectstore.parseURI: unsupported scheme %q", u.Scheme)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// ObjectStoreCsvTable is the eager+lazy C1 object-store entity of §3. The
// header is captured once at construction (first newline of the first
// 8 KiB) and replayed before each partition's data when parsing.
type ObjectStoreCsvTable struct {
	URI           string
	Bucket        string
	Key           string
	schema        *arrow.Schema
	FileSizeBytes int64
	NumPartitions int
	Config        ObjectStoreConfig
	HeaderLine    string
}

// NewObjectStoreCsvTable HEADs the object for its size and GETs the first
// 8 KiB to capture the header line. Construction failure (HEAD/GET error)
// means the source cannot be registered.
func NewObjectStoreCsvTable(ctx context.Context, uri string, numPartitions int, cfg ObjectStoreConfig) (*ObjectStoreCsvTable, error) {
	bucket, key, err := splitBucketKey(uri)
	if err != nil {
		return nil, err
	}
	client, err := cfg.newClient()
	if err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.construct: %w", err)
	}

	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.construct: stat: %w", err)
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(0, 8191); err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.construct: %w", err)
	}
	obj, err := client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.construct: get header: %w", err)
	}
	defer obj.Close()

	buf := make([]byte, 8*1024)
	n, _ := obj.Read(buf)
	head := buf[:n]
	idx := bytes.IndexByte(head, '\n')
	var headerLine string
	if idx >= 0 {
		headerLine = string(head[:idx])
	} else {
		headerLine = string(head)
	}
	headerLine = strings.TrimRight(headerLine, "\r")

	var cols []Column
	for _, tok := range strings.Split(headerLine, ",") {
		cols = append(cols, Column{Name: strings.TrimSpace(tok), Type: arrow.BinaryTypes.String, Nullable: true})
	}

	return &ObjectStoreCsvTable{
		URI:           uri,
		Bucket:        bucket,
		Key:           key,
		schema:        BuildArrowSchema(cols),
		FileSizeBytes: info.Size,
		NumPartitions: numPartitions,
		Config:        cfg,
		HeaderLine:    headerLine,
	}, nil
}

// Schema implements TableProvider.
func (t *ObjectStoreCsvTable) Schema() *arrow.Schema { return t.schema }

// RowCount implements TableProvider: object-store sources return 0
// ("unknown — query later") per §4.3.
func (t *ObjectStoreCsvTable) RowCount() int64 { return 0 }

// LeafOperators returns the lazy, shippable per-partition form.
func (t *ObjectStoreCsvTable) LeafOperators() []*ObjectStoreCsvScanExec {
	ranges := PartitionBytes(t.FileSizeBytes, t.NumPartitions)
	ops := make([]*ObjectStoreCsvScanExec, 0, len(ranges))
	for i, r := range ranges {
		ops = append(ops, &ObjectStoreCsvScanExec{
			Bucket:           t.Bucket,
			Key:              t.Key,
			TableSchema:      t.schema,
			StartByte:        r.Start,
			EndByte:          r.End,
			IsFirstPartition: i == 0,
			HeaderLine:       t.HeaderLine,
			Config:           t.Config,
		})
	}
	return ops
}

// Scan implements the eager table-provider form.
func (t *ObjectStoreCsvTable) Scan(ctx context.Context) ([]arrow.Record, error) {
	ops := t.LeafOperators()
	records := make([]arrow.Record, 0, len(ops))
	for _, op := range ops {
		rec, err := op.Execute(ctx, 0)
		if err != nil {
			for _, r := range records {
				r.Release()
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// parsePartitionCSV implements §4.1's boundary-reconstruction rule: drop the
// partition's first line (the header when the range starts at byte 0,
// otherwise an unconditionally-discarded mid-record fragment), drop empty
// lines, then reassemble the captured header with the retained data lines
// and parse the result as CSV. The returned rows never include the header.
func parsePartitionCSV(headerLine string, body []byte) ([][]string, error) {
	lines := strings.Split(string(body), "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	var reassembled strings.Builder
	reassembled.WriteString(headerLine)
	reassembled.WriteByte('\n')
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if l == "" {
			continue
		}
		reassembled.WriteString(l)
		reassembled.WriteByte('\n')
	}

	r := csv.NewReader(strings.NewReader(reassembled.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) > 0 {
		records = records[1:] // drop the replayed header row
	}
	return records, nil
}

// ObjectStoreCsvScanExec is the lazy, shippable leaf operator form of a
// single byte-range partition of an ObjectStoreCsvTable.
type ObjectStoreCsvScanExec struct {
	Bucket           string
	Key              string
	TableSchema      *arrow.Schema
	StartByte        int64
	EndByte          int64
	IsFirstPartition bool
	HeaderLine       string
	Config           ObjectStoreConfig
}

// Schema implements LeafOperator.
func (e *ObjectStoreCsvScanExec) Schema() *arrow.Schema { return e.TableSchema }

// Execute issues the ranged GET, reconstructs parseable CSV text per §4.1's
// boundary rules, and parses it into a single arrow batch. partition must
// be 0.
func (e *ObjectStoreCsvScanExec) Execute(ctx context.Context, partition int) (arrow.Record, error) {
	if partition != 0 {
		return nil, ErrNonZeroPartition
	}

	client, err := e.Config.newClient()
	if err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.execute: %w", err)
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(e.StartByte, e.EndByte-1); err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.execute: %w", err)
	}
	obj, err := client.GetObject(ctx, e.Bucket, e.Key, opts)
	if err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.execute: %w", err)
	}
	defer obj.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(obj); err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.execute: %w", err)
	}

	records, err := parsePartitionCSV(e.HeaderLine, body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("op=scan.objectstore.execute: %w", err)
	}

	mem := memory.DefaultAllocator
	b := array.NewRecordBuilder(mem, e.TableSchema)
	defer b.Release()

	numCols := e.TableSchema.NumFields()
	for _, row := range records {
		for i := 0; i < numCols; i++ {
			sb := b.Field(i).(*array.StringBuilder)
			if i < len(row) {
				sb.Append(row[i])
			} else {
				sb.AppendNull()
			}
		}
	}

	return b.NewRecord(), nil
}
