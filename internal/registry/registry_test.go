package registry

import (
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/errdefs"
	"github.com/switchboard-ai/switchboard/pkg/models"
)

type widget struct {
	flavor string
}

func makeCtor(flavor string) Constructor[string, *widget] {
	return func(cfg string) (*widget, error) {
		return &widget{flavor: flavor + ":" + cfg}, nil
	}
}

func TestCreate(t *testing.T) {
	r := New[string, *widget]("widgets")
	r.Register("basic", makeCtor("basic"))

	w, err := r.Create("basic", "cfg")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.flavor != "basic:cfg" {
		t.Errorf("flavor = %q, want basic:cfg", w.flavor)
	}
}

func TestCreateUnknownType(t *testing.T) {
	r := New[string, *widget]("widgets")

	_, err := r.Create("nope", "cfg")
	if !errdefs.IsKind(err, errdefs.ErrUnknownType) {
		t.Errorf("Create error = %v, want unknown type error", err)
	}
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := New[string, *widget]("widgets")
	r.Register("basic", makeCtor("first"))
	r.Register("basic", makeCtor("second"))

	w, err := r.Create("basic", "cfg")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if w.flavor != "second:cfg" {
		t.Errorf("flavor = %q, want the re-registered constructor to win", w.flavor)
	}
}

func TestTypes(t *testing.T) {
	r := New[string, *widget]("widgets")
	r.Register("b", makeCtor("b"))
	r.Register("a", makeCtor("a"))

	got := r.Types()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Types = %v, want [a b]", got)
	}
}

func TestRegisterDeclared(t *testing.T) {
	r := New[string, *widget]("widgets")
	catalog := map[string]Constructor[string, *widget]{
		"example.com/widgets.NewBasic": makeCtor("basic"),
	}

	decls := []models.RegistrationDecl{
		{Type: "basic", ModulePath: "example.com/widgets", ClassName: "NewBasic"},
		{Type: "exotic", ModulePath: "example.com/widgets", ClassName: "NewExotic"},
	}
	errs := r.RegisterDeclared(decls, catalog)

	if len(errs) != 1 {
		t.Fatalf("RegisterDeclared errors = %v, want exactly one", errs)
	}
	if !errdefs.IsKind(errs[0], errdefs.ErrRegistration) {
		t.Errorf("error = %v, want registration error", errs[0])
	}

	// The valid declaration registered; the failed one did not.
	if _, err := r.Create("basic", "cfg"); err != nil {
		t.Errorf("Create(basic): %v", err)
	}
	if _, err := r.Create("exotic", "cfg"); !errdefs.IsKind(err, errdefs.ErrUnknownType) {
		t.Errorf("Create(exotic) error = %v, want unknown type error", err)
	}
}
