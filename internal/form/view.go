package form

import "smoothie-orders/internal/nutrition"

const (
	Title = "🥤 Customize Your Smoothie 🥤"
	Intro = "Choose the fruits you want in your custom Smoothie!"

	PromptIngredients = "👆 Choose some ingredients before submitting your order."
	PromptName        = "✍️ Please enter your name before submitting your order."
)

// BannerKind classifies a message shown above the form.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerInfo    BannerKind = "info"
	BannerWarning BannerKind = "warning"
	BannerError   BannerKind = "error"
)

type Banner struct {
	Kind BannerKind
	Text string
}

// OptionView is one entry of the ingredient multi-select.
type OptionView struct {
	Name     string
	Selected bool
	Disabled bool
}

// NutritionTable holds the facts fetched for one selected fruit.
type NutritionTable struct {
	Fruit string
	Key   string
	Rows  []nutrition.Row
}

// View is everything a surface needs to draw the form after one render.
type View struct {
	Title         string
	Intro         string
	Name          string
	Options       []OptionView
	Selected      []string
	MaxSelections int
	ShowNutrition bool
	Banners       []Banner
	Nutrition     []NutritionTable
	CanSubmit     bool
	Halted        bool
	Statement     string
}

func (v *View) addBanner(kind BannerKind, text string) {
	v.Banners = append(v.Banners, Banner{Kind: kind, Text: text})
}

// BannersOf returns the banner texts of the given kind.
func (v *View) BannersOf(kind BannerKind) []string {
	var out []string
	for _, b := range v.Banners {
		if b.Kind == kind {
			out = append(out, b.Text)
		}
	}
	return out
}
