package canon

import "testing"

func TestParsePath(t *testing.T) {
	tests := []struct {
		input   string
		section string
		steps   int
		wantErr bool
	}{
		{"loan.loan_number", "loan", 2, false},
		{"parties[0].employment[0].monthly_income.base", "parties", 4, false},
		{"assets", "assets", 1, false},
		{"assets[3].balance", "assets", 2, false},
		{"", "", 0, true},
		{"   ", "", 0, true},
		{"loan..purpose", "", 0, true},
		{"parties[x].name", "", 0, true},
		{"parties[-1].name", "", 0, true},
		{"parties[0", "", 0, true},
		{"[0].name", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePath(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePath(%q): expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q): %v", tt.input, err)
			}
			if p.Section() != tt.section {
				t.Errorf("Section() = %q, want %q", p.Section(), tt.section)
			}
			if len(p.Steps()) != tt.steps {
				t.Errorf("len(Steps()) = %d, want %d", len(p.Steps()), tt.steps)
			}
			if p.String() != tt.input {
				t.Errorf("String() = %q, want %q", p.String(), tt.input)
			}
		})
	}
}

func TestParsePathIndices(t *testing.T) {
	p := MustParsePath("parties[2].employment[0].employer")
	steps := p.Steps()
	if steps[0].Field != "parties" || steps[0].Index != 2 {
		t.Errorf("step 0 = %+v", steps[0])
	}
	if steps[1].Field != "employment" || steps[1].Index != 0 {
		t.Errorf("step 1 = %+v", steps[1])
	}
	if steps[2].Field != "employer" || steps[2].Index != -1 {
		t.Errorf("step 2 = %+v", steps[2])
	}
}

func TestFragmentSetGet(t *testing.T) {
	f := NewFragment()
	if !f.Empty() {
		t.Error("new fragment should be empty")
	}

	if err := f.Set(MustParsePath("loan.loan_number"), "2024-00187"); err != nil {
		t.Fatal(err)
	}
	if err := f.Set(MustParsePath("parties[1].name.full"), "Mary Stone"); err != nil {
		t.Fatal(err)
	}

	if v, ok := f.GetString(MustParsePath("loan.loan_number")); !ok || v != "2024-00187" {
		t.Errorf("loan.loan_number = %q, %v", v, ok)
	}
	if v, ok := f.GetString(MustParsePath("parties[1].name.full")); !ok || v != "Mary Stone" {
		t.Errorf("parties[1].name.full = %q, %v", v, ok)
	}
	if _, ok := f.Get(MustParsePath("parties[0].name.full")); ok {
		t.Error("unwritten array slot should read as absent")
	}
	if _, ok := f.Get(MustParsePath("collateral.address.street")); ok {
		t.Error("unwritten section should read as absent")
	}
}

func TestFragmentSetTypeConflict(t *testing.T) {
	f := NewFragment()
	if err := f.Set(MustParsePath("loan.purpose"), "Purchase"); err != nil {
		t.Fatal(err)
	}
	// loan.purpose is a leaf; descending through it must fail
	if err := f.Set(MustParsePath("loan.purpose.kind"), "x"); err == nil {
		t.Error("expected type-conflict error")
	}
	// loan is an object; indexing it must fail
	if err := f.Set(MustParsePath("loan[0]"), "x"); err == nil {
		t.Error("expected array-conflict error")
	}
}

func TestFragmentSectionsAndRemove(t *testing.T) {
	f := NewFragment()
	_ = f.Set(MustParsePath("terms.loan_amount"), "250000")
	_ = f.Set(MustParsePath("assets[0].balance"), "1000")
	_ = f.Set(MustParsePath("loan.purpose"), "Purchase")

	sections := f.Sections()
	want := []string{"assets", "loan", "terms"}
	if len(sections) != len(want) {
		t.Fatalf("sections = %v", sections)
	}
	for i := range want {
		if sections[i] != want[i] {
			t.Errorf("sections[%d] = %q, want %q", i, sections[i], want[i])
		}
	}

	f.Remove("loan")
	if _, ok := f.Section("loan"); ok {
		t.Error("removed section should be gone")
	}
	if f.Leaves() != 2 {
		t.Errorf("leaves = %d, want 2", f.Leaves())
	}
}

func TestFragmentWalkPaths(t *testing.T) {
	f := NewFragment()
	_ = f.Set(MustParsePath("assets[0].deposits"), []any{
		map[string]any{"amount": "100"},
		map[string]any{"amount": "200"},
	})

	var paths []string
	f.Walk(func(path string, _ any) { paths = append(paths, path) })

	want := []string{"assets[0].deposits[0].amount", "assets[0].deposits[1].amount"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}
