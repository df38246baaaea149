package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

func TestExtractEntity(t *testing.T) {
	entity := map[string]any{"id": float64(7), "name": "alice"}

	tests := []struct {
		name string
		data map[string]any
	}{
		{name: "nested under entity key", data: map[string]any{"user": entity}},
		{name: "nested under payload.entity", data: map[string]any{"payload": map[string]any{"user": entity}}},
		{name: "payload object itself", data: map[string]any{"payload": entity}},
		{name: "top level", data: entity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractEntity(tt.data, "user")
			id, ok := asInt64(got["id"])
			require.True(t, ok)
			assert.Equal(t, int64(7), id)
		})
	}
}

func TestAsInt64(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int64
		wantOK bool
	}{
		{name: "float64 from json", in: float64(42), want: 42, wantOK: true},
		{name: "int64", in: int64(42), want: 42, wantOK: true},
		{name: "int", in: 42, want: 42, wantOK: true},
		{name: "numeric string", in: "42", want: 42, wantOK: true},
		{name: "padded numeric string", in: " 42 ", want: 42, wantOK: true},
		{name: "non-numeric string", in: "forty-two", wantOK: false},
		{name: "bool", in: true, wantOK: false},
		{name: "nil", in: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asInt64(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDeltaValue(t *testing.T) {
	tests := []struct {
		name   string
		entity map[string]any
		field  string
		want   any
		wantOK bool
	}{
		{
			name:   "bare scalar",
			entity: map[string]any{"name": "alice"},
			field:  "name",
			want:   "alice",
			wantOK: true,
		},
		{
			name:   "from-to pair applies to side",
			entity: map[string]any{"name": map[string]any{"from": "alice", "to": "bob"}},
			field:  "name",
			want:   "bob",
			wantOK: true,
		},
		{
			name:   "nested changed_fields map",
			entity: map[string]any{"changed_fields": map[string]any{"name": map[string]any{"from": "A", "to": "B"}}},
			field:  "name",
			want:   "B",
			wantOK: true,
		},
		{
			name:   "nested changes map",
			entity: map[string]any{"changes": map[string]any{"email": map[string]any{"from": "a@x", "to": "b@x"}}},
			field:  "email",
			want:   "b@x",
			wantOK: true,
		},
		{
			name:   "object-valued to is ignored",
			entity: map[string]any{"name": map[string]any{"from": "a", "to": map[string]any{"x": 1}}},
			field:  "name",
			wantOK: false,
		},
		{
			name:   "pair without to is ignored",
			entity: map[string]any{"name": map[string]any{"from": "a"}},
			field:  "name",
			wantOK: false,
		},
		{
			name:   "absent field",
			entity: map[string]any{},
			field:  "name",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := deltaValue(tt.entity, tt.field)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGroupNumber(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     int64
	}{
		{name: "plain group key", metadata: map[string]any{"group": float64(3)}, want: 3},
		{name: "case-insensitive substring", metadata: map[string]any{"StoreGroupNumber": float64(9)}, want: 9},
		{name: "numeric string value", metadata: map[string]any{"group_number": "12"}, want: 12},
		{name: "unparseable value falls through", metadata: map[string]any{"group": "north", "region_group": float64(4)}, want: 4},
		{name: "no group key", metadata: map[string]any{"city": "Oslo"}, want: identity.UnknownGroup},
		{name: "nil metadata", metadata: nil, want: identity.UnknownGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, groupNumber(tt.metadata))
		})
	}
}

func TestStringList(t *testing.T) {
	assert.Equal(t, []string{"read", "write"}, stringList([]any{"read", "write"}))
	assert.Equal(t, []string{"read"}, stringList([]any{"read", float64(3), ""}))
	assert.Equal(t, []string{"read"}, stringList("read"))
	assert.Empty(t, stringList(nil))
	assert.Empty(t, stringList([]any{}))
}

func TestRefIDAndRefName(t *testing.T) {
	flat := map[string]any{"role_id": float64(5), "role_name": "admin"}
	nested := map[string]any{"role": map[string]any{"id": float64(5), "name": "admin"}}
	bare := map[string]any{"role": "admin"}

	for _, entity := range []map[string]any{flat, nested} {
		id, ok := refID(entity, "role")
		require.True(t, ok)
		assert.Equal(t, int64(5), id)

		name, ok := refName(entity, "role")
		require.True(t, ok)
		assert.Equal(t, "admin", name)
	}

	name, ok := refName(bare, "role")
	require.True(t, ok)
	assert.Equal(t, "admin", name)

	_, ok = refID(map[string]any{}, "role")
	assert.False(t, ok)
}
