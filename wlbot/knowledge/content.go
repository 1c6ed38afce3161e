package knowledge

// Content is a closed tagged union, exactly one variant is set and it must
// match the entry's declared Type. The store serializes it opaquely, the
// service validates it before storage.
type Content struct {
	Unit     *Unit     `json:"unit,omitempty"`
	Building *Building `json:"building,omitempty"`
	Strategy *Strategy `json:"strategy,omitempty"`
	Mechanic *Mechanic `json:"mechanic,omitempty"`
	Player   *Player   `json:"player,omitempty"`
	General  *General  `json:"general,omitempty"`
}

// Unit describes a trainable combat unit.
type Unit struct {
	Name        string             `json:"name"`
	Category    string             `json:"category"` // infantry, cavalry, ranged, siege
	Tier        int                `json:"tier"`
	Cost        map[string]int     `json:"cost,omitempty"`  // resource -> amount
	Stats       map[string]float64 `json:"stats,omitempty"` // stat -> value
	Counters    []string           `json:"counters,omitempty"`
	CounteredBy []string           `json:"countered_by,omitempty"`
	BuildTime   int                `json:"build_time,omitempty"` // seconds
	Description string             `json:"description,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
}

// Building describes a constructible building and its level progression.
type Building struct {
	Name        string                 `json:"name"`
	Category    string                 `json:"category"` // military, economic, defensive
	MaxLevel    int                    `json:"max_level"`
	Effects     map[int][]string       `json:"effects,omitempty"`      // level -> effect descriptions
	UpgradeCost map[int]map[string]int `json:"upgrade_cost,omitempty"` // level -> resource costs
	Description string                 `json:"description,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
}

// TimingWindow is one step of a strategy's build order.
type TimingWindow struct {
	Time   string `json:"time"`
	Action string `json:"action"`
}

// Strategy describes a build order / play style.
type Strategy struct {
	Name            string         `json:"name"`
	Category        string         `json:"category"`   // rush, boom, turtle, hybrid
	Difficulty      string         `json:"difficulty"` // beginner, intermediate, advanced
	TimingWindows   []TimingWindow `json:"timing_windows,omitempty"`
	UnitComposition map[string]int `json:"unit_composition,omitempty"` // unit id -> count
	Counters        []string       `json:"counters,omitempty"`
	StrongAgainst   []string       `json:"strong_against,omitempty"`
	Description     string         `json:"description,omitempty"`
	Tips            []string       `json:"tips,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
}

// Mechanic explains a game rule, optionally with a formula.
type Mechanic struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"` // combat, economy, progression
	Description string   `json:"description"`
	Formula     string   `json:"formula,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	Tips        []string `json:"tips,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Player holds community knowledge about a player.
type Player struct {
	Nickname            string            `json:"nickname"`
	Clan                string            `json:"clan,omitempty"`
	Rating              int               `json:"rating,omitempty"`
	PreferredStrategies []string          `json:"preferred_strategies,omitempty"`
	Stats               map[string]string `json:"stats,omitempty"` // free form
	Tags                []string          `json:"tags,omitempty"`
}

// General is the free-form payload used for meta, timing and general entries.
type General struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Aliases     []string          `json:"aliases,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
}

func (c *Content) variants() []any {
	out := []any{}
	if c.Unit != nil {
		out = append(out, c.Unit)
	}
	if c.Building != nil {
		out = append(out, c.Building)
	}
	if c.Strategy != nil {
		out = append(out, c.Strategy)
	}
	if c.Mechanic != nil {
		out = append(out, c.Mechanic)
	}
	if c.Player != nil {
		out = append(out, c.Player)
	}
	if c.General != nil {
		out = append(out, c.General)
	}
	return out
}

func (c *Content) validate(t Type) error {
	if n := len(c.variants()); n != 1 {
		return &ValidationError{Field: "content", Reason: "must set exactly one variant"}
	}

	switch t {
	case TypeUnit:
		u := c.Unit
		if u == nil {
			return &ValidationError{Field: "content", Reason: "type unit requires a unit payload"}
		}
		if u.Name == "" {
			return &ValidationError{Field: "content.name", Reason: "is required"}
		}
		if u.Tier < 1 {
			return &ValidationError{Field: "content.tier", Reason: "must be >= 1"}
		}

	case TypeBuilding:
		b := c.Building
		if b == nil {
			return &ValidationError{Field: "content", Reason: "type building requires a building payload"}
		}
		if b.Name == "" {
			return &ValidationError{Field: "content.name", Reason: "is required"}
		}
		if b.MaxLevel < 1 {
			return &ValidationError{Field: "content.max_level", Reason: "must be >= 1"}
		}

	case TypeStrategy:
		s := c.Strategy
		if s == nil {
			return &ValidationError{Field: "content", Reason: "type strategy requires a strategy payload"}
		}
		if s.Name == "" {
			return &ValidationError{Field: "content.name", Reason: "is required"}
		}

	case TypeMechanics:
		m := c.Mechanic
		if m == nil {
			return &ValidationError{Field: "content", Reason: "type mechanics requires a mechanic payload"}
		}
		if m.Name == "" {
			return &ValidationError{Field: "content.name", Reason: "is required"}
		}

	case TypePlayer:
		p := c.Player
		if p == nil {
			return &ValidationError{Field: "content", Reason: "type player requires a player payload"}
		}
		if p.Nickname == "" {
			return &ValidationError{Field: "content.nickname", Reason: "is required"}
		}

	case TypeMeta, TypeTiming, TypeGeneral:
		g := c.General
		if g == nil {
			return &ValidationError{Field: "content", Reason: "type " + string(t) + " requires a general payload"}
		}
		if g.Title == "" {
			return &ValidationError{Field: "content.title", Reason: "is required"}
		}
	}
	return nil
}

// searchText collects the natural-language fields of the active variant.
func (c *Content) searchText() []string {
	parts := []string{}
	switch {
	case c.Unit != nil:
		parts = append(parts, c.Unit.Name, c.Unit.Category, c.Unit.Description)
		parts = append(parts, c.Unit.Tags...)
	case c.Building != nil:
		parts = append(parts, c.Building.Name, c.Building.Category, c.Building.Description)
		parts = append(parts, c.Building.Tags...)
	case c.Strategy != nil:
		parts = append(parts, c.Strategy.Name, c.Strategy.Category, c.Strategy.Description)
		parts = append(parts, c.Strategy.Tags...)
	case c.Mechanic != nil:
		parts = append(parts, c.Mechanic.Name, c.Mechanic.Category, c.Mechanic.Description)
		parts = append(parts, c.Mechanic.Tags...)
	case c.Player != nil:
		parts = append(parts, c.Player.Nickname, c.Player.Clan)
		parts = append(parts, c.Player.PreferredStrategies...)
		parts = append(parts, c.Player.Tags...)
	case c.General != nil:
		parts = append(parts, c.General.Title, c.General.Description)
		parts = append(parts, c.General.Aliases...)
		parts = append(parts, c.General.Tags...)
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tags returns the active variant's own tag list, used for tag-overlap
// scoring in addition to the entry-level tags.
func (c *Content) tags() []string {
	switch {
	case c.Unit != nil:
		return c.Unit.Tags
	case c.Building != nil:
		return c.Building.Tags
	case c.Strategy != nil:
		return c.Strategy.Tags
	case c.Mechanic != nil:
		return c.Mechanic.Tags
	case c.Player != nil:
		return c.Player.Tags
	case c.General != nil:
		return c.General.Tags
	}
	return nil
}
