package carnet

import (
	"strings"
)

// ValidityThreshold is the lowest total score accepted as a carnet
const ValidityThreshold = 40

const (
	CheckInstitution  = "institution"
	CheckDocument     = "document"
	CheckMinistry     = "ministry"
	CheckValidity     = "validity"
	CheckNumberPrefix = "number_prefix"
	CheckCarnetNumber = "carnet_number"
)

const carnetNumberWeight = 20

type marker struct {
	key      string
	weight   int
	patterns []string
}

var markers = []marker{
	{CheckInstitution, 25, []string{"UTM", "UNIVERSITATEA TEHNICĂ", "UNIVERSITATEA TEHNICA", "COLEGIUL UTM"}},
	{CheckDocument, 20, []string{"CARNET DE ELEV", "CARNET ELEV", "CARNET"}},
	{CheckMinistry, 15, []string{"MINISTERUL EDUCAȚIEI", "MINISTERUL EDUCATIEI", "MINISTERUL"}},
	{CheckValidity, 10, []string{"VALABIL", "VIZE", "SEPTEMBRIE", "IUNIE"}},
	{CheckNumberPrefix, 10, []string{"NR.", "NUMAR", "NR"}},
}

// CheckKeys lists every scored check in report order
var CheckKeys = []string{
	CheckInstitution,
	CheckDocument,
	CheckMinistry,
	CheckValidity,
	CheckNumberPrefix,
	CheckCarnetNumber,
}

// OCR mixes these up on printed digits
var confusions = [][2]string{
	{"O", "0"}, {"0", "O"},
	{"I", "1"}, {"1", "I"},
	{"S", "5"}, {"5", "S"},
}

// Old fonts and some OCR models emit the cedilla forms of Ș and Ț
var cedillas = strings.NewReplacer("Ş", "Ș", "Ţ", "Ț")

type Match struct {
	Valid      bool           `json:"is_valid"`
	Confidence int            `json:"confidence"`
	Scores     map[string]int `json:"scores"`
	Missing    []string       `json:"missing"`
}

func normalize(s string) string {
	return cedillas.Replace(strings.ToUpper(strings.TrimSpace(s)))
}

// MatchText scores OCR output against the card markers and the expected
// carnet number. The result only depends on its arguments.
func MatchText(text, expected string) Match {
	m := Match{
		Scores:  make(map[string]int, len(CheckKeys)),
		Missing: []string{},
	}

	t := normalize(text)
	n := normalize(expected)

	if t == "" || n == "" {
		for _, k := range CheckKeys {
			m.Scores[k] = 0
		}
		m.Missing = append(m.Missing, CheckKeys...)
		return m
	}

	total := 0
	for _, mk := range markers {
		score := 0
		if containsAny(t, mk.patterns) {
			score = mk.weight
		}

		m.Scores[mk.key] = score
		total += score
	}

	m.Scores[CheckCarnetNumber] = 0
	if containsNumber(t, n) {
		m.Scores[CheckCarnetNumber] = carnetNumberWeight
		total += carnetNumberWeight
	}

	for _, k := range CheckKeys {
		if m.Scores[k] == 0 {
			m.Missing = append(m.Missing, k)
		}
	}

	m.Confidence = min(total, 100)
	m.Valid = m.Confidence >= ValidityThreshold
	return m
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}

	return false
}

// containsNumber looks for the number as typed and for each single-pair
// OCR confusion applied to it
func containsNumber(text, number string) bool {
	if strings.Contains(text, number) {
		return true
	}

	for _, c := range confusions {
		variant := strings.ReplaceAll(number, c[0], c[1])
		if variant != number && strings.Contains(text, variant) {
			return true
		}
	}

	return false
}
