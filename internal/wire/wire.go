// Package wire defines the record envelope exchanged between devices and the
// household server, and its encoding as google.protobuf.Struct messages for
// the feedkeeper.v1.Household gRPC service.
package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "feedkeeper.v1.Household"

// Full gRPC method names.
const (
	MethodPing            = "/" + ServiceName + "/Ping"
	MethodCreateHousehold = "/" + ServiceName + "/CreateHousehold"
	MethodFindHousehold   = "/" + ServiceName + "/FindHousehold"
	MethodRegisterMember  = "/" + ServiceName + "/RegisterMember"
	MethodUpsertRecord    = "/" + ServiceName + "/UpsertRecord"
	MethodChangedSince    = "/" + ServiceName + "/ChangedSince"
	MethodArchive         = "/" + ServiceName + "/Archive"
)

// Record is one entity as it travels between a device and the server. Fields
// holds the kind-specific payload; the envelope carries everything the merge
// needs.
type Record struct {
	Kind        string
	ExternalID  string
	HouseholdID string
	UpdatedAt   int64
	Deleted     bool
	Fields      map[string]any
}

// Validate checks the envelope before it is sent or stored.
func (r Record) Validate() error {
	if !common.ValidKind(r.Kind) {
		return fmt.Errorf("%w: %q", common.ErrUnknownKind, r.Kind)
	}
	if r.ExternalID == "" {
		return fmt.Errorf("%w: empty external id", common.ErrInvalidRecord)
	}
	if r.HouseholdID == "" {
		return fmt.Errorf("%w: empty household id", common.ErrInvalidRecord)
	}
	if r.UpdatedAt <= 0 {
		return fmt.Errorf("%w: updated_at must be positive", common.ErrInvalidRecord)
	}
	return nil
}

// ChangedSinceQuery selects a household's records of one kind newer than Since.
type ChangedSinceQuery struct {
	Kind        string
	HouseholdID string
	Since       int64
}

// ArchiveLink points at a household snapshot in object storage.
type ArchiveLink struct {
	URL       string
	Key       string
	ExpiresAt int64
}

var errField = errors.New("bad field")

func EncodeRecord(r Record) (*structpb.Struct, error) {
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return structpb.NewStruct(map[string]any{
		"kind":         r.Kind,
		"external_id":  r.ExternalID,
		"household_id": r.HouseholdID,
		"updated_at":   r.UpdatedAt,
		"deleted":      r.Deleted,
		"fields":       fields,
	})
}

func DecodeRecord(s *structpb.Struct) (Record, error) {
	var r Record
	var err error
	if r.Kind, err = String(s, "kind"); err != nil {
		return r, err
	}
	if r.ExternalID, err = String(s, "external_id"); err != nil {
		return r, err
	}
	if r.HouseholdID, err = String(s, "household_id"); err != nil {
		return r, err
	}
	if r.UpdatedAt, err = Int64(s, "updated_at"); err != nil {
		return r, err
	}
	if r.Deleted, err = Bool(s, "deleted"); err != nil {
		return r, err
	}
	if v, ok := s.GetFields()["fields"]; ok {
		sv := v.GetStructValue()
		if sv == nil {
			return r, fmt.Errorf("%w: fields is not an object", errField)
		}
		r.Fields = sv.AsMap()
	}
	return r, nil
}

func EncodeQuery(q ChangedSinceQuery) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":         q.Kind,
		"household_id": q.HouseholdID,
		"since":        q.Since,
	})
}

func DecodeQuery(s *structpb.Struct) (ChangedSinceQuery, error) {
	var q ChangedSinceQuery
	var err error
	if q.Kind, err = String(s, "kind"); err != nil {
		return q, err
	}
	if q.HouseholdID, err = String(s, "household_id"); err != nil {
		return q, err
	}
	if q.Since, err = Int64(s, "since"); err != nil {
		return q, err
	}
	return q, nil
}

// EncodeRecords wraps a batch as {"records": [...]}.
func EncodeRecords(rs []Record) (*structpb.Struct, error) {
	list := make([]*structpb.Value, 0, len(rs))
	for _, r := range rs {
		s, err := EncodeRecord(r)
		if err != nil {
			return nil, err
		}
		list = append(list, structpb.NewStructValue(s))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"records": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

// SkippedRecords lists batch items DecodeRecords could not read. The
// records that did decode are returned alongside it.
type SkippedRecords struct {
	Errs []error
}

func (e *SkippedRecords) Error() string {
	return fmt.Sprintf("%d undecodable records: %v", len(e.Errs), errors.Join(e.Errs...))
}

func (e *SkippedRecords) Unwrap() []error { return e.Errs }

// DecodeRecords is the inverse of EncodeRecords. Malformed items are left
// out and reported through a *SkippedRecords error.
func DecodeRecords(s *structpb.Struct) ([]Record, error) {
	v, ok := s.GetFields()["records"]
	if !ok {
		return nil, nil
	}
	lv := v.GetListValue()
	if lv == nil {
		return nil, fmt.Errorf("%w: records is not a list", errField)
	}
	out := make([]Record, 0, len(lv.GetValues()))
	var skipped []error
	for i, item := range lv.GetValues() {
		sv := item.GetStructValue()
		if sv == nil {
			skipped = append(skipped, fmt.Errorf("%w: records[%d] is not an object", errField, i))
			continue
		}
		r, err := DecodeRecord(sv)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("records[%d]: %w", i, err))
			continue
		}
		out = append(out, r)
	}
	if len(skipped) > 0 {
		return out, &SkippedRecords{Errs: skipped}
	}
	return out, nil
}

func EncodeArchiveLink(l ArchiveLink) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"url":        l.URL,
		"key":        l.Key,
		"expires_at": l.ExpiresAt,
	})
}

func DecodeArchiveLink(s *structpb.Struct) (ArchiveLink, error) {
	var l ArchiveLink
	var err error
	if l.URL, err = String(s, "url"); err != nil {
		return l, err
	}
	if l.Key, err = String(s, "key"); err != nil {
		return l, err
	}
	if l.ExpiresAt, err = Int64(s, "expires_at"); err != nil {
		return l, err
	}
	return l, nil
}

// Strings builds a Struct whose values are all strings.
func Strings(kv map[string]string) *structpb.Struct {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(kv))}
	for k, v := range kv {
		out.Fields[k] = structpb.NewStringValue(v)
	}
	return out
}

// String reads a required string field.
func String(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", errField, key)
	}
	if _, isStr := v.GetKind().(*structpb.Value_StringValue); !isStr {
		return "", fmt.Errorf("%w: %q is not a string", errField, key)
	}
	return v.GetStringValue(), nil
}

// Int64 reads a required integral number field. Values beyond 2^53 cannot be
// carried exactly by a Struct and are rejected.
func Int64(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", errField, key)
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, fmt.Errorf("%w: %q is not a number", errField, key)
	}
	f := v.GetNumberValue()
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%w: %q is not an integer", errField, key)
	}
	return int64(f), nil
}

// Bool reads an optional boolean field; a missing key is false.
func Bool(s *structpb.Struct, key string) (bool, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return false, nil
	}
	if _, isBool := v.GetKind().(*structpb.Value_BoolValue); !isBool {
		return false, fmt.Errorf("%w: %q is not a bool", errField, key)
	}
	return v.GetBoolValue(), nil
}

// IsFieldError reports whether err came from decoding a malformed message.
func IsFieldError(err error) bool {
	return errors.Is(err, errField)
}
