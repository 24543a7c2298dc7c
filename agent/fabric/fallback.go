package fabric

import statex "github.com/laserhenk/henk-agent/agent/state"

// FallbackText is shown alongside the curated selection when the catalog is
// unreachable.
const FallbackText = "Unsere Stoffdatenbank ist gerade nicht erreichbar. Hier sind drei beliebte Optionen: " +
	"Navy-Wolle, mittlerer Grau-Flanell oder ein beiger Leinen-Mix. Was spricht dich am meisten an?"

// FallbackFabrics is the curated selection served without a database. A
// fresh slice per call, callers append state to the entries.
func FallbackFabrics() []statex.Fabric {
	return []statex.Fabric{
		{Code: "NAVY_WOOL_120", Name: "Feiner Navy-Wolltwill", Color: "navy", Pattern: "uni", PriceTier: TierMid},
		{Code: "MID_GREY_FLANNEL", Name: "Mittlerer Grau-Flanell", Color: "grau", Pattern: "melange", PriceTier: TierMid},
		{Code: "BEIGE_LINEN", Name: "Leichter Beige-Leinenmix", Color: "beige", Pattern: "uni", PriceTier: TierLuxury},
	}
}

// PickPair selects the two fabrics for the side-by-side presentation,
// preferring one mid and one luxury tier.
func PickPair(fabrics []statex.Fabric) (statex.Fabric, statex.Fabric, bool) {
	if len(fabrics) < 2 {
		return statex.Fabric{}, statex.Fabric{}, false
	}

	var mid, luxury *statex.Fabric
	for i := range fabrics {
		switch fabrics[i].PriceTier {
		case TierMid:
			if mid == nil {
				mid = &fabrics[i]
			}
		case TierLuxury:
			if luxury == nil {
				luxury = &fabrics[i]
			}
		}
	}
	if mid != nil && luxury != nil && mid.Code != luxury.Code {
		return *mid, *luxury, true
	}
	return fabrics[0], fabrics[1], true
}
