package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors describes every DOM hook the extractor relies on. The defaults
// match the portal this tool targets; a YAML profile can override any of them
// when the UI changes without touching code.
type Selectors struct {
	Login LoginSelectors `yaml:"login"`
	Steps []Step         `yaml:"steps"`
	Table TableSelectors `yaml:"table"`
	Cards CardSelectors  `yaml:"cards"`
}

// LoginSelectors locates the credential form and the post-login marker.
type LoginSelectors struct {
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	Submit        string `yaml:"submit"`
	LoggedIn      string `yaml:"logged_in"`
	LoggedInMatch string `yaml:"logged_in_match,omitempty"`
}

// Step is one fixed UI interaction on the way to the product listing.
// Match, when set, is a regexp narrowing Selector by visible text.
type Step struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
	Match    string `yaml:"match,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
	SettleMs int    `yaml:"settle_ms,omitempty"`
}

// TableSelectors locates the paginated table layout.
type TableSelectors struct {
	Root      string `yaml:"root"`
	Headers   string `yaml:"headers"`
	Rows      string `yaml:"rows"`
	Next      string `yaml:"next"`
	NextMatch string `yaml:"next_match,omitempty"`
}

// CardSelectors locates the card-grid layout.
type CardSelectors struct {
	Card          string `yaml:"card"`
	Name          string `yaml:"name"`
	Price         string `yaml:"price"`
	LoadMore      string `yaml:"load_more"`
	LoadMoreMatch string `yaml:"load_more_match,omitempty"`
}

// DefaultSelectors returns the selector profile for the portal UI.
func DefaultSelectors() Selectors {
	return Selectors{
		Login: LoginSelectors{
			Email:         `input[type="email"]`,
			Password:      `input[type="password"]`,
			Submit:        `button[type="submit"]`,
			LoggedIn:      `button`,
			LoggedInMatch: `Launch Challenge`,
		},
		Steps: []Step{
			{Name: "launch challenge", Selector: "button", Match: "Launch Challenge", Optional: true, SettleMs: 3000},
			{Name: "open options", Selector: "button", Match: "Open Options", SettleMs: 2000},
			{Name: "inventory tab", Selector: "button", Match: "Inventory", SettleMs: 2000},
			{Name: "access detailed view", Selector: "button", Match: "Access Detailed View", SettleMs: 2000},
			{Name: "detailed view dialog", Selector: `div[role="dialog"] div`, Match: "Detailed View", Optional: true, SettleMs: 1000},
			{Name: "show full product table", Selector: "button", Match: "Show Full Product Table", SettleMs: 5000},
		},
		Table: TableSelectors{
			Root:      "table",
			Headers:   "table thead th",
			Rows:      "table tbody tr",
			Next:      "button",
			NextMatch: "Next",
		},
		Cards: CardSelectors{
			Card:          `div[class*="product"], div[class*="item"], div[class*="card"]`,
			Name:          `h2, h3, div[class*="name"], div[class*="title"]`,
			Price:         `div[class*="price"], span[class*="price"]`,
			LoadMore:      "button",
			LoadMoreMatch: "Load [Mm]ore",
		},
	}
}

// LoadSelectors reads a YAML profile over the defaults. Fields absent from the
// file keep their default values; a steps list replaces the default sequence
// wholesale.
func LoadSelectors(path string) (Selectors, error) {
	selectors := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return selectors, fmt.Errorf("read selector profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &selectors); err != nil {
		return selectors, fmt.Errorf("parse selector profile: %w", err)
	}

	if err := selectors.Validate(); err != nil {
		return selectors, err
	}
	return selectors, nil
}

// Validate rejects profiles that would leave the extractor blind.
func (s Selectors) Validate() error {
	if s.Login.Email == "" || s.Login.Password == "" || s.Login.Submit == "" {
		return fmt.Errorf("login selectors must include email, password, and submit")
	}
	if s.Login.LoggedIn == "" {
		return fmt.Errorf("login selectors must include a logged-in marker")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one navigation step is required")
	}
	for i, step := range s.Steps {
		if step.Name == "" {
			return fmt.Errorf("navigation step %d has no name", i+1)
		}
		if step.Selector == "" {
			return fmt.Errorf("navigation step %q has no selector", step.Name)
		}
	}
	if s.Table.Root == "" || s.Table.Headers == "" || s.Table.Rows == "" {
		return fmt.Errorf("table selectors must include root, headers, and rows")
	}
	if s.Cards.Card == "" {
		return fmt.Errorf("card selectors must include the card container")
	}
	return nil
}
