package request

import (
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/parent"
)

func mustParse(t *testing.T, raw string) Params {
	t.Helper()
	p, err := ParseParams([]byte(raw))
	if err != nil {
		t.Fatalf("ParseParams(%s): %v", raw, err)
	}
	return p
}

func mustYAML(t *testing.T, raw string) Params {
	t.Helper()
	var p Params
	if err := yaml.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	return p
}

func fieldOf(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}

func TestResolve_BuiltinDefaults(t *testing.T) {
	r := NewResolver(Params{})
	req, err := r.Resolve(mustParse(t, `{"collection": "docs"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Collection() != "docs" {
		t.Errorf("Collection() = %q", req.Collection())
	}
	if req.VectorName() != DefaultVectorName {
		t.Errorf("VectorName() = %q", req.VectorName())
	}
	if req.Method() != method.Cosine {
		t.Errorf("Method() = %q", req.Method())
	}
	if req.ParentStrategy() != parent.None {
		t.Errorf("ParentStrategy() = %q", req.ParentStrategy())
	}
	if req.IncludeVector() {
		t.Error("IncludeVector() = true")
	}
	if _, ok := req.Top(); ok {
		t.Error("Top() should be unbounded")
	}
	if _, ok := req.Horizon(); ok {
		t.Error("Horizon() should be unbounded")
	}
	if req.OperationLevel() != nil {
		t.Error("OperationLevel() should be absent")
	}
	if !req.Filter().IsEmpty() {
		t.Errorf("Filter() = %s", req.Filter())
	}
}

func TestResolve_TopPrecedence(t *testing.T) {
	withConfig := NewResolver(mustYAML(t, "top: 10\n"))
	without := NewResolver(Params{})

	req, err := withConfig.Resolve(mustParse(t, `{"collection": "c", "top": 5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := req.Top(); !ok || n != 5 {
		t.Errorf("runtime top: got %d, %v", n, ok)
	}

	req, err = withConfig.Resolve(mustParse(t, `{"collection": "c"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := req.Top(); !ok || n != 10 {
		t.Errorf("config top: got %d, %v", n, ok)
	}

	req, err = without.Resolve(mustParse(t, `{"collection": "c"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.Top(); ok {
		t.Error("no top anywhere should be unbounded")
	}
}

func TestResolve_CollectionFromConfig(t *testing.T) {
	r := NewResolver(mustYAML(t, "collection: docs\ntenant: acme\n"))
	req, err := r.Resolve(mustParse(t, `{"top": 3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Collection() != "docs" || req.Tenant() != "acme" {
		t.Errorf("got %q/%q", req.Collection(), req.Tenant())
	}
	if d, ok := r.Default(KeyCollection); !ok || d != "docs" {
		t.Errorf("Default(collection) = %v, %v", d, ok)
	}
}

func TestResolve_MissingCollection(t *testing.T) {
	_, err := NewResolver(Params{}).Resolve(mustParse(t, `{"top": 3}`))
	if !errors.Is(err, domain.ErrValidation) || fieldOf(err) != KeyCollection {
		t.Fatalf("expected collection ValidationError, got %v", err)
	}
}

func TestResolve_Coercions(t *testing.T) {
	req, err := NewResolver(Params{}).Resolve(mustParse(t, `{
		"collection": "c",
		"top": "7",
		"horizon": 0.4,
		"operation_level": -1,
		"include_vector": "true",
		"method": "dot",
		"parent_strategy": "replace",
		"auto_limit": 2.0,
		"dedupe_parents": true,
		"vector_name": "title"
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := req.Top(); n != 7 {
		t.Errorf("Top() = %d", n)
	}
	if h, ok := req.Horizon(); !ok || h != 0.4 {
		t.Errorf("Horizon() = %v, %v", h, ok)
	}
	if lvl := req.OperationLevel(); lvl == nil || *lvl != -1 {
		t.Errorf("OperationLevel() = %v", lvl)
	}
	if !req.IncludeVector() || !req.DedupeParents() {
		t.Error("bool coercion failed")
	}
	if req.Method() != method.Dot || req.ParentStrategy() != parent.Replace {
		t.Errorf("enums = %q/%q", req.Method(), req.ParentStrategy())
	}
	if req.AutoLimit() != 2 || req.VectorName() != "title" {
		t.Errorf("AutoLimit() = %d, VectorName() = %q", req.AutoLimit(), req.VectorName())
	}
}

func TestResolve_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"zero top", `{"collection": "c", "top": 0}`, KeyTop},
		{"negative top", `{"collection": "c", "top": -3}`, KeyTop},
		{"fractional top", `{"collection": "c", "top": 2.5}`, KeyTop},
		{"text top", `{"collection": "c", "top": "many"}`, KeyTop},
		{"negative horizon", `{"collection": "c", "horizon": -0.1}`, KeyHorizon},
		{"bad method", `{"collection": "c", "method": "euclid"}`, KeyMethod},
		{"bad strategy", `{"collection": "c", "parent_strategy": "grandparent"}`, KeyParentStrategy},
		{"bad bool", `{"collection": "c", "include_vector": "maybe"}`, KeyIncludeVector},
		{"numeric collection", `{"collection": 5}`, KeyCollection},
		{"bad filter", `{"collection": "c", "having_all": {"name ~": 1}}`, KeyHavingAll},
		{"empty embedding", `{"collection": "c", "query_embedding": []}`, KeyQueryEmbedding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(Params{}).Resolve(mustParse(t, tt.raw))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if fieldOf(err) != tt.field {
				t.Errorf("field = %q, want %q", fieldOf(err), tt.field)
			}
		})
	}
}

func TestResolver_Validate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"empty", "", false},
		{"no collection", "top: 5\nmethod: dot\n", false},
		{"with collection", "collection: docs\nparent_strategy: include\n", false},
		{"negative top", "top: -1\n", true},
		{"bad method", "method: bogus\n", true},
		{"bad horizon", "horizon: -2\n", true},
		{"bad filter", "having_all:\n  name ~: 1\n", true},
		{"numeric collection", "collection: 5\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewResolver(mustYAML(t, tt.yaml)).Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolve_NoneStrategyIsExplicitAbsence(t *testing.T) {
	r := NewResolver(mustYAML(t, "parent_strategy: include\n"))
	req, err := r.Resolve(mustParse(t, `{"collection": "c", "parent_strategy": "none"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ParentStrategy() != parent.None {
		t.Errorf("ParentStrategy() = %q", req.ParentStrategy())
	}
}

func TestResolve_FilterPrecedence(t *testing.T) {
	r := NewResolver(mustYAML(t, "having_all:\n  lang: en\nhaving_any:\n  tags @: [a]\n"))

	req, err := r.Resolve(mustParse(t, `{"collection": "c", "having_all": {"x !=": 5}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := req.Filter().String(), `x != 5 AND tags @ ["a"]`; got != want {
		t.Errorf("Filter() = %q, want %q", got, want)
	}

	req, err = r.Resolve(mustParse(t, `{"collection": "c", "having_any": {}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := req.Filter().String(), `lang == "en"`; got != want {
		t.Errorf("Filter() = %q, want %q", got, want)
	}
}

func TestResolve_NullIsAbsent(t *testing.T) {
	r := NewResolver(mustYAML(t, "top: 10\n"))
	req, err := r.Resolve(mustParse(t, `{"collection": "c", "top": null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, _ := req.Top(); n != 10 {
		t.Errorf("Top() = %d, want config value", n)
	}
}

func TestParseParams_PassThroughAndVector(t *testing.T) {
	p := mustParse(t, `{"collection": "c", "query_embedding": [0.1, 0.2], "alpha": 0.5}`)
	if string(p.Extra()["alpha"]) != "0.5" {
		t.Errorf("Extra() = %v", p.Extra())
	}
	if len(p.QueryEmbedding()) != 2 {
		t.Errorf("QueryEmbedding() = %v", p.QueryEmbedding())
	}

	req, err := NewResolver(Params{}).Resolve(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := req.Extra()["alpha"]; !ok {
		t.Error("pass-through key lost in resolution")
	}
}

func TestParseParams_BareVector(t *testing.T) {
	p := mustParse(t, ` [1, 2.5, -3] `)
	if got := p.QueryEmbedding(); len(got) != 3 || got[1] != 2.5 {
		t.Errorf("QueryEmbedding() = %v", got)
	}
	if _, ok := p.Get(KeyCollection); ok {
		t.Error("bare vector should not set collection")
	}
}

func TestParseParams_Malformed(t *testing.T) {
	for _, raw := range []string{"", "{", `["a"]`, `{"query_embedding": "x"}`} {
		_, err := ParseParams([]byte(raw))
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ParseParams(%q): expected ErrValidation, got %v", raw, err)
		}
	}
}

func TestParamsYAML_RejectsUnknownKeys(t *testing.T) {
	var p Params
	err := yaml.Unmarshal([]byte("colection: docs\n"), &p)
	if err == nil || !strings.Contains(err.Error(), "unknown parameter") {
		t.Fatalf("expected unknown parameter error, got %v", err)
	}
}

func TestWithQueryEmbedding_Copies(t *testing.T) {
	req, err := NewResolver(Params{}).Resolve(mustParse(t, `{"collection": "c"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	withVec := req.WithQueryEmbedding([]float32{1})
	if req.QueryEmbedding() != nil {
		t.Error("WithQueryEmbedding mutated the receiver")
	}
	if len(withVec.QueryEmbedding()) != 1 {
		t.Error("embedding not set")
	}
}
