package category

import "testing"

func TestResolve(t *testing.T) {
	cases := []struct {
		name  string
		code  string
		hint  string
		key   string
		title string
	}{
		{"plain code", "лето", "", "лето", "лето"},
		{"code with hint", "зима", "Зима 2025", "зима", "Зима 2025"},
		{"whitespace trimmed", "  лето  ", "  Лето  ", "лето", "Лето"},
		{"merge source one", "внерегл_ч_1", "", "внерегламент", "внерегламент"},
		{"merge source two", "внерегл_ч_2", "", "внерегламент", "внерегламент"},
		{"merge is case-insensitive", "ВНЕРЕГЛ_Ч_1", "", "внерегламент", "внерегламент"},
		{"merge via hint fallback", "", "внерегл_ч_2", "внерегламент", "внерегламент"},
		{"hint only", "", "Прочие работы", "прочие работы", "Прочие работы"},
		{"both empty", "", "", "прочее", "Прочее"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, title := Resolve(tc.code, tc.hint)
			if key != tc.key || title != tc.title {
				t.Fatalf("Resolve(%q, %q) = (%q, %q), want (%q, %q)",
					tc.code, tc.hint, key, title, tc.key, tc.title)
			}
		})
	}
}

func TestResolveNeverEmpty(t *testing.T) {
	inputs := []struct{ code, hint string }{
		{"", ""}, {" ", " "}, {"x", ""}, {"", "y"}, {"внерегл_ч_1", "hint"},
	}
	for _, in := range inputs {
		key, title := Resolve(in.code, in.hint)
		if key == "" || title == "" {
			t.Fatalf("Resolve(%q, %q) returned empty output (%q, %q)", in.code, in.hint, key, title)
		}
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		code string
		want Kind
	}{
		{"лето", Summer},
		{" Лето ", Summer},
		{"зима", Winter},
		{"внерегл_ч_1", OffSchedule},
		{"внерегл_ч_2", OffSchedule},
		{"ВНЕРЕГЛ_Ч_2", OffSchedule},
		{"внерегламент", Other},
		{"", Other},
		{"капремонт", Other},
	}
	for _, tc := range cases {
		if got := KindOf(tc.code); got != tc.want {
			t.Fatalf("KindOf(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIsMergeSource(t *testing.T) {
	if !IsMergeSource("внерегл_ч_1") || !IsMergeSource(" внерегл_ч_2 ") {
		t.Fatal("off-schedule codes must be merge sources")
	}
	if IsMergeSource("лето") || IsMergeSource("внерегламент") {
		t.Fatal("seasonal codes and the merged label are not merge sources")
	}
}
