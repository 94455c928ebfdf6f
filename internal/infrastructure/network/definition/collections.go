package networkdefinition

// KnownCollections maps lower-cased collection names to a base floor in MON.
// The synthetic floor estimator varies around these values.
func KnownCollections() map[string]float64 {
	return map[string]float64{
		"lil chogstarr":   0.15,
		"the daks":        0.08,
		"molandaks":       0.12,
		"slmnd nft":       0.06,
		"spiky":           0.04,
		"lamouchnft":      0.03,
		"onemillion nft":  0.25,
		"moyaking pass":   0.18,
		"lil monks":       0.09,
		"bandit":          0.07,
		"gold teeth gang": 0.20,
		"beholdak":        0.14,
		"monshape hopium": 0.11,
		"foggy":           0.05,
		"mondana":         0.06,
		"r3tardnft":       0.04,
		"chog chest":      0.08,
		"skrumpey":        0.05,
		"starlist pass":   0.12,
		"dn":              0.03,
		"10k squad":       0.07,
		"bobr":            0.04,
		"meownad":         0.06,
		"the antonios":    0.09,
	}
}
