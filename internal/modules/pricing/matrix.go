package pricing

import "math"

const (
	// SpecialDistrict is the archipelago district priced by proximity group.
	SpecialDistrict = "Adalar"
	// SpecialZone is the zone id reserved for SpecialDistrict. Its matrix
	// row and column are placeholders and are never read.
	SpecialZone = 9

	SpecialBasePrice      int64 = 2500
	SpecialIntraZonePrice int64 = 500
	// FallbackProximityGroup applies to districts missing from ProximityGroups.
	FallbackProximityGroup = 9

	proximityStep = 0.1
)

// FareMatrix[origin-1][destination-1] is the base fare in TRY between two
// regular zones.
var FareMatrix = [9][9]int64{
	{500, 600, 700, 800, 900, 1000, 1100, 1200, 0},
	{600, 500, 650, 750, 850, 950, 1050, 1150, 0},
	{700, 650, 500, 700, 800, 900, 1000, 1100, 0},
	{800, 750, 700, 500, 750, 850, 950, 1050, 0},
	{900, 850, 800, 750, 500, 800, 900, 1000, 0},
	{1000, 950, 900, 850, 800, 500, 850, 950, 0},
	{1100, 1050, 1000, 950, 900, 850, 500, 900, 0},
	{1200, 1150, 1100, 1050, 1000, 950, 900, 500, 0},
	{0, 0, 0, 0, 0, 0, 0, 0, 0},
}

// ProximityGroups ranks districts by distance to SpecialDistrict: 0 is the
// district itself, 1 the closest shore, 9 the farthest.
var ProximityGroups = map[string]int{
	"Adalar": 0,

	"Kadıköy": 1,
	"Maltepe": 1,
	"Kartal":  1,

	"Üsküdar": 2,
	"Pendik":  2,
	"Tuzla":   2,

	"Ataşehir": 3,
	"Ümraniye": 3,
	"Beykoz":   3,

	"Çekmeköy":    4,
	"Sancaktepe":  4,
	"Sultanbeyli": 4,
	"Şile":        4,

	"Beşiktaş":    5,
	"Fatih":       5,
	"Bakırköy":    5,
	"Zeytinburnu": 5,

	"Beyoğlu":   6,
	"Şişli":     6,
	"Kağıthane": 6,
	"Sarıyer":   6,

	"Eyüpsultan":   7,
	"Bayrampaşa":   7,
	"Güngören":     7,
	"Bahçelievler": 7,
	"Esenler":      7,

	"Gaziosmanpaşa": 8,
	"Sultangazi":    8,
	"Bağcılar":      8,
	"Küçükçekmece":  8,
	"Avcılar":       8,

	"Başakşehir":   9,
	"Arnavutköy":   9,
	"Beylikdüzü":   9,
	"Esenyurt":     9,
	"Büyükçekmece": 9,
	"Çatalca":      9,
	"Silivri":      9,
}

// DesiMultipliers maps a size bucket to its price multiplier.
var DesiMultipliers = map[string]float64{
	"0-2":   1.00,
	"2-5":   1.01,
	"5-10":  1.05,
	"10-20": 1.10,
}

// ProximityGroup looks district up in ProximityGroups.
func ProximityGroup(district string) (int, bool) {
	g, ok := ProximityGroups[district]
	return g, ok
}

// DesiMultiplier returns the multiplier for code, 1.0 when unknown or empty.
func DesiMultiplier(code string) float64 {
	if m, ok := DesiMultipliers[code]; ok {
		return m
	}
	return 1.0
}

// RegularFare is the directional matrix lookup for two regular zones.
// ok is false for ids outside 1..8.
func RegularFare(originZone, destinationZone int) (int64, bool) {
	if !isRegularZone(originZone) || !isRegularZone(destinationZone) {
		return 0, false
	}
	return FareMatrix[originZone-1][destinationZone-1], true
}

// SpecialFareForGroup prices a route between SpecialDistrict and a district
// in proximity group g.
func SpecialFareForGroup(g int) int64 {
	if g == 0 {
		return SpecialIntraZonePrice
	}
	return round(float64(SpecialBasePrice) * (1 + proximityStep*float64(g-1)))
}

func isRegularZone(z int) bool {
	return z >= 1 && z < SpecialZone
}

// round rounds half away from zero; all priced values are non-negative.
func round(v float64) int64 {
	return int64(math.Round(v))
}
