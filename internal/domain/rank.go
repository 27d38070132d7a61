package domain

import "fmt"

// AverageRank is one of Rank, FaceItRank or ESEARank depending on the
// service a match was played on.
type AverageRank interface {
	fmt.Stringer
	averageRank()
}

// Rank is an official matchmaking skill group. 0 means unknown.
type Rank int

const (
	SilverI Rank = iota + 1
	SilverII
	SilverIII
	SilverIV
	SilverElite
	SilverEliteMaster
	GoldNovaI
	GoldNovaII
	GoldNovaIII
	GoldNovaMaster
	MasterGuardianI
	MasterGuardianII
	MasterGuardianElite
	DistinguishedMasterGuardian
	LegendaryEagle
	LegendaryEagleMaster
	SupremeMasterFirstClass
	GlobalElite
)

var rankNames = [...]string{
	"Unknown",
	"Silver I",
	"Silver II",
	"Silver III",
	"Silver IV",
	"Silver Elite",
	"Silver Elite Master",
	"Gold Nova I",
	"Gold Nova II",
	"Gold Nova III",
	"Gold Nova Master",
	"Master Guardian I",
	"Master Guardian II",
	"Master Guardian Elite",
	"Distinguished Master Guardian",
	"Legendary Eagle",
	"Legendary Eagle Master",
	"Supreme Master First Class",
	"Global Elite",
}

func (r Rank) Valid() bool {
	return r >= SilverI && r <= GlobalElite
}

func (r Rank) String() string {
	if !r.Valid() {
		return rankNames[0]
	}
	return rankNames[r]
}

func (Rank) averageRank() {}

type FaceItRank string

const (
	FaceItLevel1  FaceItRank = "Level 1"
	FaceItLevel2  FaceItRank = "Level 2"
	FaceItLevel3  FaceItRank = "Level 3"
	FaceItLevel4  FaceItRank = "Level 4"
	FaceItLevel5  FaceItRank = "Level 5"
	FaceItLevel6  FaceItRank = "Level 6"
	FaceItLevel7  FaceItRank = "Level 7"
	FaceItLevel8  FaceItRank = "Level 8"
	FaceItLevel9  FaceItRank = "Level 9"
	FaceItLevel10 FaceItRank = "Level 10"
)

func (r FaceItRank) String() string { return string(r) }

func (FaceItRank) averageRank() {}

type ESEARank string

const (
	ESEADMinus ESEARank = "D-"
	ESEAD      ESEARank = "D"
	ESEADPlus  ESEARank = "D+"
	ESEACMinus ESEARank = "C-"
	ESEAC      ESEARank = "C"
	ESEACPlus  ESEARank = "C+"
	ESEABMinus ESEARank = "B-"
	ESEAB      ESEARank = "B"
	ESEABPlus  ESEARank = "B+"
	ESEAAMinus ESEARank = "A-"
	ESEAA      ESEARank = "A"
	ESEAAPlus  ESEARank = "A+"
	ESEARankG  ESEARank = "Rank G"
	ESEARankS  ESEARank = "Rank S"
)

func (r ESEARank) String() string { return string(r) }

func (ESEARank) averageRank() {}

// icon file name (without extension) -> rank
var FaceItIconMap = map[string]FaceItRank{
	"level1":  FaceItLevel1,
	"level2":  FaceItLevel2,
	"level3":  FaceItLevel3,
	"level4":  FaceItLevel4,
	"level5":  FaceItLevel5,
	"level6":  FaceItLevel6,
	"level7":  FaceItLevel7,
	"level8":  FaceItLevel8,
	"level9":  FaceItLevel9,
	"level10": FaceItLevel10,
}

var ESEAIconMap = map[string]ESEARank{
	"dminus": ESEADMinus,
	"d":      ESEAD,
	"dplus":  ESEADPlus,
	"cminus": ESEACMinus,
	"c":      ESEAC,
	"cplus":  ESEACPlus,
	"bminus": ESEABMinus,
	"b":      ESEAB,
	"bplus":  ESEABPlus,
	"aminus": ESEAAMinus,
	"a":      ESEAA,
	"aplus":  ESEAAPlus,
	"g":      ESEARankG,
	"s":      ESEARankS,
}
