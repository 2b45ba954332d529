package wire

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/kallahq/kalla/internal/scan"
)

// Tags for the two custom leaf operators (§9 "each registered in two
// parallel codecs: operator + provider"; here both forms share one DTO).
const (
	TagRelationalScanExec   byte = 0x01
	TagObjectStoreScanExec  byte = 0x02
)

type wireColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type_string"`
	Nullable bool   `json:"nullable"`
}

func schemaToWire(s *arrow.Schema) []wireColumn {
	cols := make([]wireColumn, s.NumFields())
	for i, f := range s.Fields() {
		cols[i] = wireColumn{Name: f.Name, Type: scan.ArrowTypeName(f.Type), Nullable: f.Nullable}
	}
	return cols
}

func wireToColumns(cols []wireColumn) []scan.Column {
	out := make([]scan.Column, len(cols))
	for i, c := range cols {
		out[i] = scan.Column{Name: c.Name, Type: scan.ArrowTypeFromName(c.Type), Nullable: c.Nullable}
	}
	return out
}

type relationalScanExecDTO struct {
	ConnString  string       `json:"conn_string"`
	TableName   string       `json:"table_name"`
	Schema      []wireColumn `json:"schema"`
	Offset      int64        `json:"offset"`
	Limit       int64        `json:"limit"`
	OrderColumn string       `json:"order_column,omitempty"`
	Where       string       `json:"where,omitempty"`
}

type objectStoreScanExecDTO struct {
	Bucket           string       `json:"bucket"`
	Key              string       `json:"key"`
	Schema           []wireColumn `json:"schema"`
	StartByte        int64        `json:"start_byte"`
	EndByte          int64        `json:"end_byte"`
	IsFirstPartition bool         `json:"is_first_partition"`
	HeaderLine       string       `json:"header_line"`
	Region           string       `json:"region,omitempty"`
	AccessKey        string       `json:"access_key,omitempty"`
	SecretKey        string       `json:"secret_key,omitempty"`
	Endpoint         string       `json:"endpoint,omitempty"`
	AllowHTTP        bool         `json:"allow_http,omitempty"`
}

// RegisterOperators wires the two custom leaf operators into codec.
func RegisterOperators(codec *Codec) {
	codec.Register(TagRelationalScanExec,
		func(v any) ([]byte, bool) {
			op, ok := v.(*scan.RelationalScanExec)
			if !ok {
				return nil, false
			}
			dto := relationalScanExecDTO{
				ConnString:  op.ConnString,
				TableName:   op.TableName,
				Schema:      schemaToWire(op.Schema()),
				Offset:      op.Offset,
				Limit:       op.Limit,
				OrderColumn: op.OrderColumn,
				Where:       op.Where,
			}
			payload, err := jsonEncode(dto)
			if err != nil {
				return nil, false
			}
			return payload, true
		},
		func(payload []byte) (any, error) {
			var dto relationalScanExecDTO
			if err := jsonDecode(payload, &dto); err != nil {
				return nil, err
			}
			schema := scan.BuildArrowSchema(wireToColumns(dto.Schema))
			return &scan.RelationalScanExec{
				ConnString:  dto.ConnString,
				TableName:   dto.TableName,
				Offset:      dto.Offset,
				Limit:       dto.Limit,
				OrderColumn: dto.OrderColumn,
				Where:       dto.Where,
				TableSchema: schema,
			}, nil
		},
	)

	codec.Register(TagObjectStoreScanExec,
		func(v any) ([]byte, bool) {
			op, ok := v.(*scan.ObjectStoreCsvScanExec)
			if !ok {
				return nil, false
			}
			dto := objectStoreScanExecDTO{
				Bucket:           op.Bucket,
				Key:              op.Key,
				Schema:           schemaToWire(op.Schema()),
				StartByte:        op.StartByte,
				EndByte:          op.EndByte,
				IsFirstPartition: op.IsFirstPartition,
				HeaderLine:       op.HeaderLine,
				Region:           op.Config.Region,
				AccessKey:        op.Config.AccessKey,
				SecretKey:        op.Config.SecretKey,
				Endpoint:         op.Config.Endpoint,
				AllowHTTP:        op.Config.AllowHTTP,
			}
			payload, err := jsonEncode(dto)
			if err != nil {
				return nil, false
			}
			return payload, true
		},
		func(payload []byte) (any, error) {
			var dto objectStoreScanExecDTO
			if err := jsonDecode(payload, &dto); err != nil {
				return nil, err
			}
			schema := scan.BuildArrowSchema(wireToColumns(dto.Schema))
			return &scan.ObjectStoreCsvScanExec{
				Bucket:           dto.Bucket,
				Key:              dto.Key,
				StartByte:        dto.StartByte,
				EndByte:          dto.EndByte,
				IsFirstPartition: dto.IsFirstPartition,
				HeaderLine:       dto.HeaderLine,
				Config: scan.ObjectStoreConfig{
					Region:    dto.Region,
					AccessKey: dto.AccessKey,
					SecretKey: dto.SecretKey,
					Endpoint:  dto.Endpoint,
					AllowHTTP: dto.AllowHTTP,
				},
				TableSchema: schema,
			}, nil
		},
	)
}
