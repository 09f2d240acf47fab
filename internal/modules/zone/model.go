// README: District to zone mapping and the known district set.
package zone

import "errors"

const (
	MinZone = 1
	MaxZone = 9
)

var (
	ErrNoMapping       = errors.New("no zone mapping stored")
	ErrUnknownDistrict = errors.New("unknown district")
	ErrZoneOutOfRange  = errors.New("zone out of range")
)

// Mapping assigns each district at most one zone. A published Mapping is
// never mutated; writers build a new one and swap it in.
type Mapping map[string]int

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Districts is the fixed set of Istanbul districts the service delivers to.
var Districts = []string{
	"Adalar", "Arnavutköy", "Ataşehir", "Avcılar", "Bağcılar", "Bahçelievler",
	"Bakırköy", "Başakşehir", "Bayrampaşa", "Beşiktaş", "Beykoz", "Beylikdüzü",
	"Beyoğlu", "Büyükçekmece", "Çatalca", "Çekmeköy", "Esenler", "Esenyurt",
	"Eyüpsultan", "Fatih", "Gaziosmanpaşa", "Güngören", "Kadıköy", "Kağıthane",
	"Kartal", "Küçükçekmece", "Maltepe", "Pendik", "Sancaktepe", "Sarıyer",
	"Silivri", "Sultanbeyli", "Sultangazi", "Şile", "Şişli", "Tuzla",
	"Ümraniye", "Üsküdar", "Zeytinburnu",
}

var knownDistricts = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Districts))
	for _, d := range Districts {
		m[d] = struct{}{}
	}
	return m
}()

// IsKnownDistrict reports whether d is one of Districts.
func IsKnownDistrict(d string) bool {
	_, ok := knownDistricts[d]
	return ok
}

// ValidZone reports whether z can index the fare matrix.
func ValidZone(z int) bool {
	return z >= MinZone && z <= MaxZone
}
