package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/kallahq/kalla/internal/scan"
	"github.com/kallahq/kalla/internal/wire"
)

// FlightServer is the executor daemon's side of the cluster engine: it
// decodes shipped leaf operators via C2, runs them, and materializes the
// results into its own embedded LocalEngine so match_sql still executes
// against a real DuckDB table regardless of how many executors are in the
// cluster.
type FlightServer struct {
	flight.BaseFlightServer

	codec *wire.Codec
	local *LocalEngine

	mu      sync.Mutex
	tickets map[string]string // ticket -> sql, resolved by a prior "query" action
}

// NewFlightServer wires codec (with the leaf operators and UDF already
// registered) to a fresh embedded LocalEngine.
func NewFlightServer(codec *wire.Codec) (*FlightServer, error) {
	local, err := NewLocalEngine()
	if err != nil {
		return nil, fmt.Errorf("op=engine.flightServer.new: %w", err)
	}
	return &FlightServer{codec: codec, local: local, tickets: make(map[string]string)}, nil
}

// Serve starts a gRPC server hosting this Flight service at addr and blocks
// until the listener or context is done.
func (s *FlightServer) Serve(ctx context.Context, addr string) error {
	srv := flight.NewFlightServer()
	srv.Init(addr)
	srv.RegisterFlightService(s)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case <-ctx.Done():
		srv.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// DoAction handles "register_source" (decode + materialize one leaf
// operator's batch under the given alias) and "query" (stash sql, return an
// opaque ticket for a subsequent DoGet).
func (s *FlightServer) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	switch action.Type {
	case "register_source":
		return s.doRegisterSource(action.Body, stream)
	case "query":
		return s.doQueryAction(action.Body, stream)
	default:
		return fmt.Errorf("op=engine.flightServer.DoAction: unknown action %q", action.Type)
	}
}

func (s *FlightServer) doRegisterSource(body []byte, stream flight.FlightService_DoActionServer) error {
	var req registerSourceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("op=engine.flightServer.doRegisterSource: %w", err)
	}
	decoded, err := s.codec.Decode(req.Operator)
	if err != nil {
		return fmt.Errorf("op=engine.flightServer.doRegisterSource: decode: %w", err)
	}
	op, ok := decoded.(scan.LeafOperator)
	if !ok {
		return fmt.Errorf("op=engine.flightServer.doRegisterSource: decoded value is not a leaf operator")
	}
	rec, err := op.Execute(stream.Context(), 0)
	if err != nil {
		return fmt.Errorf("op=engine.flightServer.doRegisterSource: execute: %w", err)
	}
	defer rec.Release()

	n, err := s.local.appendBatch(stream.Context(), req.Alias, rec)
	if err != nil {
		return fmt.Errorf("op=engine.flightServer.doRegisterSource: %w", err)
	}

	ack, err := json.Marshal(registerSourceAck{RowsAppended: n})
	if err != nil {
		return fmt.Errorf("op=engine.flightServer.doRegisterSource: %w", err)
	}
	return stream.Send(&flight.Result{Body: ack})
}

func (s *FlightServer) doQueryAction(body []byte, stream flight.FlightService_DoActionServer) error {
	sql := string(body)
	ticket := fmt.Sprintf("t-%d", len(s.tickets)+1)
	s.mu.Lock()
	s.tickets[ticket] = sql
	s.mu.Unlock()
	return stream.Send(&flight.Result{Body: []byte(ticket)})
}

// DoGet resolves a previously issued ticket back to its SQL, runs it against
// the embedded engine, and streams the result as an Arrow IPC batch stream.
func (s *FlightServer) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	s.mu.Lock()
	sql, ok := s.tickets[string(tkt.Ticket)]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("op=engine.flightServer.DoGet: unknown ticket")
	}

	reader, err := s.local.Query(stream.Context(), sql)
	if err != nil {
		return fmt.Errorf("op=engine.flightServer.DoGet: %w", err)
	}
	defer reader.Release()

	w := flight.NewRecordWriter(&flightDataStreamWriter{stream: stream}, ipc.WithSchema(reader.Schema()))
	defer w.Close()
	for reader.Next() {
		if err := w.Write(reader.Record()); err != nil {
			return fmt.Errorf("op=engine.flightServer.DoGet: write: %w", err)
		}
	}
	return reader.Err()
}

// flightDataStreamWriter adapts a FlightService_DoGetServer's Send method to
// the io.Writer-like sink flight.NewRecordWriter expects.
type flightDataStreamWriter struct {
	stream flight.FlightService_DoGetServer
}

func (w *flightDataStreamWriter) Send(data *flight.FlightData) error {
	return w.stream.Send(data)
}
