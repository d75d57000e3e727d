package fruit

import "testing"

func TestHeuristicKey(t *testing.T) {
	cases := []struct {
		name     string
		expected string
	}{
		{"berries", "berry"},
		{"Blueberries", "blueberry"},
		{"apples", "apple"},
		{"Apples", "apple"},
		{"dragon fruit", "dragonfruit"},
		{"Dragon  Fruit", "dragonfruit"},
		{"Peaches", "peach"},
		{"Mangoes", "mango"},
		{"Figs", "fig"},
		{"Kiwi", "kiwi"},
		{"Citrus", "citrus"},
		{"Ugli Fruit", "ugli"},
		{"Ziziphus Jujube", "jujube"},
		{"Red Grapes", "red"},
		{"Strawberries (fresh)", "strawberry"},
		{"Passion Fruits", "passionfruit"},
		{"Dragon Fruit (Pitaya)", "dragonfruit"},
		{"Honeydew Melons", "honeydew"},
		{"123", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HeuristicKey(tc.name)
			if got != tc.expected {
				t.Errorf("HeuristicKey(%q): expected '%s', got '%s'", tc.name, tc.expected, got)
			}
			if again := HeuristicKey(tc.name); again != got {
				t.Errorf("HeuristicKey(%q) is not deterministic: '%s' then '%s'", tc.name, got, again)
			}
		})
	}
}

func TestPolicyKey(t *testing.T) {
	withAlias := Option{Name: "Blueberries", SearchOn: "Blueberry"}
	blankAlias := Option{Name: "Cantaloupe", SearchOn: "   "}

	cases := []struct {
		policy   Policy
		opt      Option
		expected string
	}{
		{PolicyBasic, withAlias, "blueberries"},
		{PolicySearchOn, withAlias, "blueberry"},
		{PolicySearchOn, blankAlias, "cantaloupe"},
		{PolicyHeuristic, withAlias, "blueberry"},
		{PolicyHeuristic, Option{Name: "Dragon Fruit"}, "dragonfruit"},
	}

	for _, tc := range cases {
		t.Run(string(tc.policy)+"/"+tc.opt.Name, func(t *testing.T) {
			if got := tc.policy.Key(tc.opt); got != tc.expected {
				t.Errorf("Expected key '%s', got '%s'", tc.expected, got)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Heuristic ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if p != PolicyHeuristic {
		t.Errorf("Expected heuristic, got %s", p)
	}

	if _, err := ParsePolicy("guess"); err == nil {
		t.Error("Expected an error for an unknown policy, got nil")
	}
}
