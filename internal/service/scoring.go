package service

import (
	"sort"

	"github.com/mindcare-tw/mindcare-backend/pkg/model"
)

// Risk levels reported to clients
const (
	RiskWHO5Good      = "良好"
	RiskWHO5Moderate  = "中度關注"
	RiskWHO5Attention = "需要關注"

	RiskBSRS5Normal   = "正常"
	RiskBSRS5Mild     = "輕度"
	RiskBSRS5Moderate = "中度"
	RiskBSRS5Severe   = "重度"
)

// DefaultRecommendation is returned for levels no table knows about
const DefaultRecommendation = "感謝您完成測驗。"

// SuicideRiskRecommendation takes precedence over any score-based text
const SuicideRiskRecommendation = "⚠️ 檢測到自殺意念風險，無論總分高低，強烈建議立即尋求專業心理師或精神科醫師的協助。"

// RiskBand maps an inclusive score range to a level
type RiskBand struct {
	Min            int
	Max            int
	Level          string
	Recommendation string
}

// FlagRule raises a flag when the choice selected for the question at
// Order scores at least MinScore
type FlagRule struct {
	Order          int
	MinScore       int
	Recommendation string
}

// ScoringRule describes how one questionnaire is scored
type ScoringRule struct {
	Code model.TestCode
	// Multiplier scales the raw sum onto the published range.
	Multiplier int
	// Unscored lists question orders that never count toward the total.
	Unscored []int
	MaxScore int
	Bands    []RiskBand
	Flag     *FlagRule
}

var scoringRules = map[model.TestCode]ScoringRule{
	model.TestCodeWHO5: {
		Code:       model.TestCodeWHO5,
		Multiplier: 4,
		MaxScore:   100,
		Bands: []RiskBand{
			{Min: 50, Max: 100, Level: RiskWHO5Good, Recommendation: "您的幸福感狀況良好！請繼續保持健康的生活方式和積極的心態。"},
			{Min: 29, Max: 49, Level: RiskWHO5Moderate, Recommendation: "您的幸福感需要一些關注。建議嘗試放鬆活動、規律作息，或與親友分享感受。"},
			{Min: 0, Max: 28, Level: RiskWHO5Attention, Recommendation: "建議您尋求專業心理師的協助，以獲得更好的支持和指導。"},
		},
	},
	model.TestCodeBSRS5: {
		Code:       model.TestCodeBSRS5,
		Multiplier: 1,
		Unscored:   []int{6},
		MaxScore:   20,
		Bands: []RiskBand{
			{Min: 0, Max: 5, Level: RiskBSRS5Normal, Recommendation: "您的心理狀態良好！請繼續保持健康的生活方式和正向的心態。"},
			{Min: 6, Max: 9, Level: RiskBSRS5Mild, Recommendation: "您有輕度心理困擾，建議多與親友談談，適度抒發情緒，並注意休息與放鬆。"},
			{Min: 10, Max: 14, Level: RiskBSRS5Moderate, Recommendation: "您有中度心理困擾，建議尋求心理諮商或專業協助，以獲得更好的支持。"},
			{Min: 15, Max: 20, Level: RiskBSRS5Severe, Recommendation: "您有重度心理困擾，需要高度關懷，強烈建議尋求精神科治療或專業心理治療。"},
		},
		Flag: &FlagRule{Order: 6, MinScore: 1, Recommendation: SuicideRiskRecommendation},
	},
}

// RuleFor returns the scoring rule of a test
func RuleFor(code model.TestCode) (ScoringRule, bool) {
	rule, ok := scoringRules[code]
	return rule, ok
}

// Level returns the risk level for a total score. Scores outside every
// band clamp to the nearest band.
func (r ScoringRule) Level(total int) string {
	band := r.band(total)
	if band == nil {
		return ""
	}
	return band.Level
}

func (r ScoringRule) band(total int) *RiskBand {
	if len(r.Bands) == 0 {
		return nil
	}
	lowest, highest := &r.Bands[0], &r.Bands[0]
	for i := range r.Bands {
		b := &r.Bands[i]
		if total >= b.Min && total <= b.Max {
			return b
		}
		if b.Min < lowest.Min {
			lowest = b
		}
		if b.Max > highest.Max {
			highest = b
		}
	}
	if total < lowest.Min {
		return lowest
	}
	return highest
}

func (r ScoringRule) scored(order int) bool {
	for _, o := range r.Unscored {
		if o == order {
			return false
		}
	}
	return true
}

// GetRecommendation returns the advice shown with a result. A raised flag
// always wins over the level.
func GetRecommendation(code model.TestCode, riskLevel string, flagged bool) string {
	rule, ok := scoringRules[code]
	if !ok {
		return DefaultRecommendation
	}
	if flagged && rule.Flag != nil {
		return rule.Flag.Recommendation
	}
	for _, b := range rule.Bands {
		if b.Level == riskLevel {
			return b.Recommendation
		}
	}
	return DefaultRecommendation
}

// Evaluation is the scored outcome of a complete response set
type Evaluation struct {
	TotalScore     int
	RiskLevel      string
	HasSuicideRisk bool
	Recommendation string
	Items          []model.AssessmentResultItem
}

// Evaluate validates items against the question set and scores them.
// Exactly one item per question is required.
func Evaluate(rule ScoringRule, questions []model.Question, items []model.AssessmentResponseItem) (*Evaluation, error) {
	if len(questions) == 0 {
		return nil, invalid("test", "test %s has no questions", rule.Code)
	}
	if len(items) != len(questions) {
		return nil, invalid("items", "expected %d answers, got %d", len(questions), len(items))
	}

	byID := make(map[string]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	type answer struct {
		order int
		item  model.AssessmentResultItem
	}
	answers := make([]answer, 0, len(items))
	seen := make(map[string]bool, len(items))
	raw := 0
	flagged := false

	for i, item := range items {
		q, ok := byID[item.QuestionID]
		if !ok {
			return nil, invalid("items", "item %d references unknown question %q", i, item.QuestionID)
		}
		if seen[q.ID] {
			return nil, invalid("items", "question %q answered more than once", q.ID)
		}
		seen[q.ID] = true

		var choice *model.Choice
		for j := range q.Choices {
			if q.Choices[j].ID == item.ChoiceID {
				choice = &q.Choices[j]
				break
			}
		}
		if choice == nil {
			return nil, invalid("items", "choice %q does not belong to question %q", item.ChoiceID, q.ID)
		}

		if rule.scored(q.Order) {
			raw += choice.Score
		}
		if rule.Flag != nil && q.Order == rule.Flag.Order && choice.Score >= rule.Flag.MinScore {
			flagged = true
		}
		answers = append(answers, answer{
			order: q.Order,
			item:  model.AssessmentResultItem{QuestionID: q.ID, ChoiceID: choice.ID, Score: choice.Score},
		})
	}

	sort.SliceStable(answers, func(i, j int) bool { return answers[i].order < answers[j].order })
	resultItems := make([]model.AssessmentResultItem, len(answers))
	for i, a := range answers {
		resultItems[i] = a.item
	}

	multiplier := rule.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}
	total := raw * multiplier
	level := rule.Level(total)

	return &Evaluation{
		TotalScore:     total,
		RiskLevel:      level,
		HasSuicideRisk: flagged,
		Recommendation: GetRecommendation(rule.Code, level, flagged),
		Items:          resultItems,
	}, nil
}
