package catalogue

// Reference returns the standard 8v8 catalogue: twenty factions over six
// groups. Each valid three-group half resolves to exactly eight slots.
func Reference() *Catalogue {
	return MustNew([]Faction{
		{Name: "Lordaeron", Group: NorthAlliance},
		{Name: "Quel'thalas", Group: NorthAlliance},
		{Name: "Dalaran", Group: NorthAlliance, Slot: "DalaranSlot"},
		{Name: "Gilneas", Group: NorthAlliance, Slot: "DalaranSlot"},

		{Name: "Scourge", Group: BurningLegion},
		{Name: "Legion", Group: BurningLegion},

		{Name: "Stormwind", Group: SouthAlliance},
		{Name: "Ironforge", Group: SouthAlliance},
		{Name: "Kul'tiras", Group: SouthAlliance},

		{Name: "Fel Horde", Group: FelHorde},
		{Name: "Illidari", Group: FelHorde, Slot: "IllidariSlot"},
		{Name: "Sunfury", Group: FelHorde, Slot: "IllidariSlot"},

		{Name: "Warsong", Group: Kalimdor, Slot: "FrostwolfSlot"},
		{Name: "Frostwolf", Group: Kalimdor, Slot: "FrostwolfSlot"},
		{Name: "Sentinels", Group: Kalimdor, Slot: "SentinelsSlot"},
		{Name: "The Exodar", Group: Kalimdor, Slot: "SentinelsSlot"},
		{Name: "Druids", Group: Kalimdor},

		{Name: "An'qiraj", Group: OldGods},
		{Name: "Black Empire", Group: OldGods},
		{Name: "Skywall", Group: OldGods},
	})
}

// DefaultPreferences is the list given to players who have not set any
// preferences when a draft starts.
func DefaultPreferences() []string {
	return []string{
		"Quel'thalas",
		"Ironforge",
		"Kul'tiras",
		"Lordaeron",
		"Skywall",
		"Druids",
		"Gilneas",
		"Illidari",
	}
}
