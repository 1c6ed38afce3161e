package knowledge

// SeedEntries is the curated baseline roster, buildings, strategies and
// mechanics loaded by Initialize. Ids are stable so re-seeding is a no-op.
func SeedEntries() []*Entry {
	return []*Entry{
		{
			ID:     "unit_swordsman",
			Type:   TypeUnit,
			Source: SourceStatic,
			Content: Content{Unit: &Unit{
				Name:        "Swordsman",
				Category:    "infantry",
				Tier:        1,
				Cost:        map[string]int{"gold": 100, "food": 50},
				Stats:       map[string]float64{"attack": 15, "defense": 20, "speed": 3, "health": 100},
				Counters:    []string{"archer", "siege"},
				CounteredBy: []string{"cavalry", "spearman"},
				BuildTime:   30,
				Description: "Basic infantry with solid defense.",
				Tags:        []string{"melee", "tank", "early_game"},
			}},
			Confidence:  1.0,
			Tags:        []string{"melee", "tank"},
			ContextTags: []string{"infantry", "swordsmen", "frontline"},
		},
		{
			ID:     "unit_archer",
			Type:   TypeUnit,
			Source: SourceStatic,
			Content: Content{Unit: &Unit{
				Name:        "Archer",
				Category:    "ranged",
				Tier:        1,
				Cost:        map[string]int{"gold": 120, "wood": 60},
				Stats:       map[string]float64{"attack": 18, "defense": 8, "speed": 4, "health": 60, "range": 5},
				Counters:    []string{"spearman", "cavalry"},
				CounteredBy: []string{"swordsman", "siege"},
				BuildTime:   25,
				Description: "Ranged unit with weak defense.",
				Tags:        []string{"ranged", "dps", "early_game"},
			}},
			Confidence:  1.0,
			Tags:        []string{"ranged", "dps"},
			ContextTags: []string{"archers", "ranged", "shooters"},
		},
		{
			ID:     "unit_cavalry",
			Type:   TypeUnit,
			Source: SourceStatic,
			Content: Content{Unit: &Unit{
				Name:        "Cavalry",
				Category:    "cavalry",
				Tier:        2,
				Cost:        map[string]int{"gold": 200, "food": 100},
				Stats:       map[string]float64{"attack": 25, "defense": 15, "speed": 7, "health": 150},
				Counters:    []string{"archer", "siege", "swordsman"},
				CounteredBy: []string{"spearman", "halberdier"},
				BuildTime:   45,
				Description: "Fast units, effective against ranged armies.",
				Tags:        []string{"mobile", "flanking", "mid_game"},
			}},
			Confidence:  1.0,
			Tags:        []string{"mobile", "flanking"},
			ContextTags: []string{"cavalry", "riders", "horsemen"},
		},
		{
			ID:     "unit_spearman",
			Type:   TypeUnit,
			Source: SourceStatic,
			Content: Content{Unit: &Unit{
				Name:        "Spearman",
				Category:    "infantry",
				Tier:        1,
				Cost:        map[string]int{"gold": 80, "wood": 40},
				Stats:       map[string]float64{"attack": 12, "defense": 18, "speed": 3, "health": 90},
				Counters:    []string{"cavalry", "halberdier"},
				CounteredBy: []string{"archer", "swordsman"},
				BuildTime:   25,
				Description: "Specializes in fighting cavalry.",
				Tags:        []string{"anti_cavalry", "defensive", "early_game"},
			}},
			Confidence:  1.0,
			Tags:        []string{"anti_cavalry", "defensive"},
			ContextTags: []string{"spearmen", "anti_cavalry", "infantry"},
		},
		{
			ID:     "unit_catapult",
			Type:   TypeUnit,
			Source: SourceStatic,
			Content: Content{Unit: &Unit{
				Name:        "Catapult",
				Category:    "siege",
				Tier:        3,
				Cost:        map[string]int{"gold": 400, "wood": 200, "stone": 100},
				Stats:       map[string]float64{"attack": 50, "defense": 5, "speed": 1, "health": 200, "range": 8},
				Counters:    []string{"buildings", "infantry_groups"},
				CounteredBy: []string{"cavalry", "fast_units"},
				BuildTime:   90,
				Description: "Siege engine for demolishing buildings.",
				Tags:        []string{"siege", "late_game", "anti_building"},
			}},
			Confidence:  1.0,
			Tags:        []string{"siege", "anti_building"},
			ContextTags: []string{"siege", "catapult", "demolition"},
		},
		{
			ID:     "unit_knight",
			Type:   TypeUnit,
			Source: SourceStatic,
			Content: Content{Unit: &Unit{
				Name:        "Knight",
				Category:    "cavalry",
				Tier:        3,
				Cost:        map[string]int{"gold": 350, "food": 150, "iron": 50},
				Stats:       map[string]float64{"attack": 35, "defense": 25, "speed": 6, "health": 250},
				Counters:    []string{"archer", "light_infantry"},
				CounteredBy: []string{"halberdier", "heavy_spearman"},
				BuildTime:   60,
				Description: "Elite heavy cavalry.",
				Tags:        []string{"elite", "heavy", "late_game"},
			}},
			Confidence:  1.0,
			Tags:        []string{"elite", "heavy"},
			ContextTags: []string{"knights", "elite", "heavy_cavalry"},
		},

		{
			ID:     "building_barracks",
			Type:   TypeBuilding,
			Source: SourceStatic,
			Content: Content{Building: &Building{
				Name:     "Barracks",
				Category: "military",
				MaxLevel: 3,
				Effects: map[int][]string{
					1: {"unlocks swordsman, spearman, archer"},
					2: {"training speed +10%"},
					3: {"training speed +20%"},
				},
				UpgradeCost: map[int]map[string]int{
					2: {"gold": 500, "wood": 300, "stone": 200},
					3: {"gold": 1000, "wood": 600, "stone": 400},
				},
				Description: "Trains the basic infantry roster.",
				Tags:        []string{"military", "essential"},
			}},
			Confidence:  1.0,
			Tags:        []string{"military", "essential"},
			ContextTags: []string{"barracks", "military_building", "infantry"},
		},
		{
			ID:     "building_stable",
			Type:   TypeBuilding,
			Source: SourceStatic,
			Content: Content{Building: &Building{
				Name:     "Stable",
				Category: "military",
				MaxLevel: 3,
				Effects: map[int][]string{
					1: {"unlocks cavalry, knight"},
					2: {"cavalry speed +5%"},
					3: {"cavalry speed +10%"},
				},
				UpgradeCost: map[int]map[string]int{
					2: {"gold": 700, "wood": 400, "food": 300},
					3: {"gold": 1400, "wood": 800, "food": 600},
				},
				Description: "Trains cavalry units, requires a barracks.",
				Tags:        []string{"military", "cavalry"},
			}},
			Confidence:  1.0,
			Tags:        []string{"military", "cavalry"},
			ContextTags: []string{"stable", "cavalry", "military_building"},
		},
		{
			ID:     "building_workshop",
			Type:   TypeBuilding,
			Source: SourceStatic,
			Content: Content{Building: &Building{
				Name:     "Workshop",
				Category: "military",
				MaxLevel: 2,
				Effects: map[int][]string{
					1: {"unlocks catapult, ballista"},
					2: {"siege damage +15%"},
				},
				UpgradeCost: map[int]map[string]int{
					2: {"gold": 1000, "wood": 800, "stone": 600, "iron": 200},
				},
				Description: "Builds siege engines, requires barracks and blacksmith.",
				Tags:        []string{"military", "siege", "late_game"},
			}},
			Confidence:  1.0,
			Tags:        []string{"military", "siege"},
			ContextTags: []string{"workshop", "siege", "siege_engines"},
		},

		{
			ID:     "strategy_archer_rush",
			Type:   TypeStrategy,
			Source: SourceStatic,
			Content: Content{Strategy: &Strategy{
				Name:       "Archer Rush",
				Category:   "rush",
				Difficulty: "beginner",
				TimingWindows: []TimingWindow{
					{Time: "3-5 min", Action: "build two barracks"},
					{Time: "5-7 min", Action: "mass 10-15 archers"},
					{Time: "7-10 min", Action: "attack the enemy base"},
				},
				UnitComposition: map[string]int{"archer": 15, "spearman": 5},
				Counters:        []string{"turtle_defense", "cavalry_counter"},
				StrongAgainst:   []string{"economy_boom", "late_game_strategies"},
				Description:     "Early aggression with massed archers.",
				Tips: []string{
					"Focus the wood economy early.",
					"Target enemy workers first.",
					"Retreat as soon as cavalry shows up.",
				},
				Tags: []string{"early_game", "aggressive", "micro_intensive"},
			}},
			Confidence:  1.0,
			Tags:        []string{"aggressive", "early_game"},
			ContextTags: []string{"rush", "archers", "early_attack"},
		},
		{
			ID:     "strategy_cavalry_flanking",
			Type:   TypeStrategy,
			Source: SourceStatic,
			Content: Content{Strategy: &Strategy{
				Name:       "Cavalry Flanking",
				Category:   "hybrid",
				Difficulty: "intermediate",
				TimingWindows: []TimingWindow{
					{Time: "5-7 min", Action: "build a stable"},
					{Time: "8-10 min", Action: "mass 5-7 cavalry"},
					{Time: "10-12 min", Action: "flank around the enemy line"},
				},
				UnitComposition: map[string]int{"cavalry": 10, "swordsman": 15, "archer": 10},
				Counters:        []string{"spear_wall", "defensive_towers"},
				StrongAgainst:   []string{"archer_armies", "economy_focused"},
				Description:     "Combined attack with a cavalry flank.",
				Tips: []string{
					"Use infantry as the distraction.",
					"Hit enemy archers from behind with cavalry.",
					"Stay away from spearmen.",
				},
				Tags: []string{"mid_game", "mobile", "flanking"},
			}},
			Confidence:  1.0,
			Tags:        []string{"mobile", "flanking"},
			ContextTags: []string{"cavalry", "flank", "maneuver"},
		},

		{
			ID:     "mechanics_damage_calculation",
			Type:   TypeMechanics,
			Source: SourceStatic,
			Content: Content{Mechanic: &Mechanic{
				Name:        "Damage Calculation",
				Category:    "combat",
				Description: "Damage depends on attacker attack, defender defense and unit type bonuses.",
				Formula:     "damage = (attack * type_bonus) - (defense * 0.5)",
				Examples: []string{
					"Archer (18 attack) vs Swordsman (20 defense): 18 - 10 = 8 damage.",
					"Cavalry (25 attack) vs Archer (8 defense) with a x1.5 bonus: 37.5 - 4 = 33.5 damage.",
				},
				Tips: []string{
					"Field units with type bonuses against the enemy composition.",
					"Defense absorbs half of incoming damage.",
				},
				Tags: []string{"combat", "damage", "calculations"},
			}},
			Confidence:  1.0,
			Tags:        []string{"combat", "damage"},
			ContextTags: []string{"damage", "combat", "mechanics"},
		},
		{
			ID:     "mechanics_economy_growth",
			Type:   TypeMechanics,
			Source: SourceStatic,
			Content: Content{Mechanic: &Mechanic{
				Name:        "Economy Growth",
				Category:    "economy",
				Description: "Income comes from workers gathering resources plus building bonuses.",
				Formula:     "income_rate = workers * efficiency * building_bonus",
				Examples: []string{
					"10 workers on gold at efficiency 1.0: 10 gold/min.",
					"15 workers on wood with a mill (+20%): 18 wood/min.",
				},
				Tips: []string{
					"Balance military spending against the economy.",
					"Build economic buildings to raise income.",
				},
				Tags: []string{"economy", "resources", "management"},
			}},
			Confidence:  1.0,
			Tags:        []string{"economy", "resources"},
			ContextTags: []string{"economy", "resources", "income"},
		},
	}
}
