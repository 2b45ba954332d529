package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kallahq/kalla/internal/registry"
	"github.com/kallahq/kalla/internal/wire"
)

// Action type names understood by the executor daemon's Flight service.
const (
	actionRegisterSource = "register_source"
	actionQuery          = "query"
)

// ClusterEngine ships work to a remote executor over Arrow Flight: leaf
// operators travel as C2-encoded DoAction payloads, and match_sql results
// stream back as a standard Flight DoGet/IPC record batch stream (§1, §4.4
// "cluster engine").
type ClusterEngine struct {
	addr   string
	codec  *wire.Codec
	client flight.Client
}

// NewClusterEngine dials addr without blocking; reachability is established
// by the first Probe/RegisterTable/Query call, matching the job runner's
// stage 2 probe-with-budget semantics.
func NewClusterEngine(addr string, codec *wire.Codec) (*ClusterEngine, error) {
	client, err := flight.NewClientWithMiddleware(addr, nil, nil, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("op=engine.cluster.new: %w", err)
	}
	return &ClusterEngine{addr: addr, codec: codec, client: client}, nil
}

func (e *ClusterEngine) Mode() Mode { return ModeCluster }

func (e *ClusterEngine) Close() error { return e.client.Close() }

// Probe is literally a bounded SELECT 1 against the remote executor, per
// §4.4 stage 2: the caller is expected to wrap ctx with its own 10s budget.
func (e *ClusterEngine) Probe(ctx context.Context) error {
	reader, err := e.Query(ctx, "SELECT 1")
	if err != nil {
		return err
	}
	defer reader.Release()
	return nil
}

// RegisterTable ships reg's leaf operators to the remote executor, one
// DoAction call per partition, so the executor can materialize them into
// its own embedded engine under alias.
func (e *ClusterEngine) RegisterTable(ctx context.Context, alias string, reg *registry.Registration) (int64, error) {
	ops, err := leafOperatorsOf(reg)
	if err != nil {
		return 0, fmt.Errorf("op=engine.cluster.RegisterTable: %w", err)
	}

	var rowCount int64
	for _, op := range ops {
		payload, err := e.codec.Encode(op)
		if err != nil {
			return 0, fmt.Errorf("op=engine.cluster.RegisterTable: encode: %w", err)
		}
		req := registerSourceRequest{Alias: alias, Operator: payload}
		body, err := json.Marshal(req)
		if err != nil {
			return 0, fmt.Errorf("op=engine.cluster.RegisterTable: %w", err)
		}
		stream, err := e.client.DoAction(ctx, &flight.Action{Type: actionRegisterSource, Body: body})
		if err != nil {
			return 0, fmt.Errorf("op=engine.cluster.RegisterTable: %w", err)
		}
		for {
			res, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				return 0, fmt.Errorf("op=engine.cluster.RegisterTable: %w", err)
			}
			var ack registerSourceAck
			if err := json.Unmarshal(res.GetBody(), &ack); err == nil {
				rowCount += ack.RowsAppended
			}
		}
	}
	return rowCount, nil
}

// Query sends sql as a "query" DoAction to obtain a ticket, then performs
// DoGet against that ticket and returns the resulting Arrow IPC stream.
func (e *ClusterEngine) Query(ctx context.Context, sql string) (array.RecordReader, error) {
	stream, err := e.client.DoAction(ctx, &flight.Action{Type: actionQuery, Body: []byte(sql)})
	if err != nil {
		return nil, fmt.Errorf("op=engine.cluster.Query: %w", err)
	}
	res, err := stream.Recv()
	if err != nil {
		return nil, fmt.Errorf("op=engine.cluster.Query: %w", err)
	}

	getStream, err := e.client.DoGet(ctx, &flight.Ticket{Ticket: res.GetBody()})
	if err != nil {
		return nil, fmt.Errorf("op=engine.cluster.Query: %w", err)
	}
	reader, err := flight.NewRecordReader(getStream)
	if err != nil {
		return nil, fmt.Errorf("op=engine.cluster.Query: %w", err)
	}
	return reader, nil
}

// registerSourceRequest/Ack are the DoAction payload shapes the executor's
// Flight service speaks for "register_source".
type registerSourceRequest struct {
	Alias    string `json:"alias"`
	Operator []byte `json:"operator"`
}

type registerSourceAck struct {
	RowsAppended int64 `json:"rows_appended"`
}

// leafOperatorsOf returns reg's shippable leaf operators as a generic slice,
// the form RegisterTable encodes one at a time over the wire codec.
func leafOperatorsOf(reg *registry.Registration) ([]any, error) {
	switch reg.Kind {
	case registry.KindRelational:
		ops := reg.Relational.LeafOperators()
		out := make([]any, len(ops))
		for i, op := range ops {
			out[i] = op
		}
		return out, nil
	case registry.KindObjectStoreCSV:
		ops := reg.ObjectStore.LeafOperators()
		out := make([]any, len(ops))
		for i, op := range ops {
			out[i] = op
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cluster mode does not ship local file sources; kind=%v must resolve on the executor itself", reg.Kind)
	}
}
