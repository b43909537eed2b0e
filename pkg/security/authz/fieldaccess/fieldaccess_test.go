package fieldaccess

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type audit struct {
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type profile struct {
	Bio    string `json:"bio"`
	Salary int    `json:"salary"`
}

type account struct {
	audit
	Meta

	ID       uint64            `json:"id"`
	Email    string            `json:"email"`
	Mobile   string            `json:"mobile,omitempty"`
	Password string            `json:"-"`
	Nickname string
	Profile  *profile          `json:"profile"`
	Tags     []string          `json:"tags"`
	Labels   map[string]string `json:"labels"`
	secret   string
}

type Meta struct {
	Version int `json:"version"`
}

func newRegistry() *Registry {
	r := NewRegistry()
	r.Register(account{},
		Rule{Field: "email", Roles: []string{"Admin", "user"}},
		Rule{Field: "Mobile", Roles: []string{"admin"}},
		Rule{Field: "version", Roles: []string{"admin"}},
	)
	r.Register(&profile{}, Rule{Field: "salary", Roles: []string{"super_admin"}})
	return r
}

func sample() *account {
	return &account{
		audit:    audit{CreatedBy: "root"},
		Meta:     Meta{Version: 3},
		ID:       7,
		Email:    "ada@example.com",
		Mobile:   "555",
		Password: "hash",
		Nickname: "ada",
		Profile:  &profile{Bio: "math", Salary: 10},
		Tags:     []string{"a"},
		Labels:   map[string]string{"team": "core"},
		secret:   "s",
	}
}

func TestFilter_AdminSeesEverything(t *testing.T) {
	got := newRegistry().Filter(sample(), []string{"admin", "SuperAdmin"}).(map[string]any)

	assert.Equal(t, uint64(7), got["id"])
	assert.Equal(t, "ada@example.com", got["email"])
	assert.Equal(t, "555", got["mobile"])
	assert.Equal(t, 3, got["version"])
	assert.Equal(t, "ada", got["Nickname"])
	assert.Equal(t, map[string]any{"bio": "math", "salary": 10}, got["profile"])
	assert.Equal(t, []any{"a"}, got["tags"])
	assert.Equal(t, map[string]any{"team": "core"}, got["labels"])
	assert.NotContains(t, got, "Password")
	assert.NotContains(t, got, "secret")
	assert.Equal(t, "root", got["created_by"])
}

func TestFilter_RemovesRestrictedFields(t *testing.T) {
	got := newRegistry().Filter(sample(), []string{"user"}).(map[string]any)

	assert.Equal(t, "ada@example.com", got["email"])
	assert.NotContains(t, got, "mobile")
	assert.NotContains(t, got, "version")
	assert.Equal(t, map[string]any{"bio": "math"}, got["profile"])

	got = newRegistry().Filter(sample(), []string{"public"}).(map[string]any)
	assert.NotContains(t, got, "email")
}

func TestFilter_UnannotatedFieldsRetained(t *testing.T) {
	for _, roles := range [][]string{nil, {"public"}, {"user"}, {"admin"}} {
		got := newRegistry().Filter(sample(), roles).(map[string]any)
		assert.Equal(t, uint64(7), got["id"])
		assert.Equal(t, "ada", got["Nickname"])
		assert.Equal(t, []any{"a"}, got["tags"])
	}
}

func TestFilter_CaseInsensitiveRoles(t *testing.T) {
	got := newRegistry().Filter(sample(), []string{"ADMIN"}).(map[string]any)
	assert.Contains(t, got, "mobile")
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	in := sample()
	_ = newRegistry().Filter(in, []string{"public"})

	assert.Equal(t, sample(), in)
}

func TestFilter_Idempotent(t *testing.T) {
	r := newRegistry()
	roles := []string{"user"}

	once := r.Filter([]*account{sample(), sample()}, roles)
	twice := r.Filter(once, roles)
	assert.Equal(t, once, twice)
}

func TestFilter_ListsAndNesting(t *testing.T) {
	r := newRegistry()

	got := r.Filter(map[string]any{
		"items": []account{*sample()},
		"total": 1,
	}, []string{"user"}).(map[string]any)

	items := got["items"].([]any)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0].(map[string]any), "mobile")
	assert.Equal(t, 1, got["total"])
}

func TestFilter_Leaves(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	assert.Nil(t, r.Filter(nil, nil))
	assert.Equal(t, 5, r.Filter(5, nil))
	assert.Equal(t, "x", r.Filter("x", nil))
	assert.Equal(t, now, r.Filter(now, nil))
	assert.Equal(t, []byte("raw"), r.Filter([]byte("raw"), nil))

	var nilAccount *account
	assert.Nil(t, r.Filter(nilAccount, nil))
}

func TestFilter_OmitEmpty(t *testing.T) {
	in := sample()
	in.Mobile = ""
	got := newRegistry().Filter(in, []string{"admin"}).(map[string]any)
	assert.NotContains(t, got, "mobile")
}

type window struct {
	Start int `json:"start"`
}

type schedule struct {
	When    time.Time `json:"when,omitempty"`
	Window  window    `json:"window,omitempty"`
	Count   int64     `json:"count,string"`
	Ratio   *float64  `json:"ratio,string,omitempty"`
	Enabled bool      `json:"enabled,omitempty,string"`
	Tags    []string  `json:"tags,omitempty"`
	Note    *string   `json:"note,omitempty"`
}

func TestFilter_MatchesJSONEncoding(t *testing.T) {
	ratio := 0.5
	tests := []struct {
		name string
		in   any
	}{
		{name: "zero value", in: schedule{}},
		{name: "account", in: sample()},
		{name: "populated", in: schedule{
			When:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			Window:  window{Start: 9},
			Count:   5,
			Ratio:   &ratio,
			Enabled: true,
			Tags:    []string{"a"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := json.Marshal(tt.in)
			require.NoError(t, err)
			got, err := json.Marshal(newRegistry().Filter(tt.in, []string{"admin", "super_admin"}))
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got))
		})
	}
}

func TestRegistry_Rules(t *testing.T) {
	r := newRegistry()

	assert.Equal(t, []string{"admin", "user"}, r.Rules(&account{})["email"])
	assert.Empty(t, r.Rules(audit{}))

	r.Register(account{}, Rule{Field: "email", Roles: []string{"admin"}})
	assert.Equal(t, []string{"admin"}, r.Rules(account{})["email"])
}

func TestDefaultRegistry(t *testing.T) {
	type note struct {
		Body string `json:"body"`
	}
	Register(note{}, Rule{Field: "body", Roles: []string{"admin"}})

	assert.Equal(t, map[string]any{}, Filter(note{Body: "x"}, []string{"user"}))
	assert.Same(t, defaultRegistry, Default())
}
