package memory

// Category names for the memory document. The three dict categories hold
// structured records; every other fixed category holds strings.
const (
	CategoryMemories          = "memories"
	CategoryInterests         = "interests"
	CategoryPreferences       = "preferences"
	CategoryPeople            = "people"
	CategoryPlaces            = "places"
	CategoryLifeRoles         = "life_roles"
	CategoryDailyRoutines     = "daily_routines"
	CategoryValuesBeliefs     = "values_beliefs"
	CategoryEmotionalPatterns = "emotional_patterns"
	CategoryAchievements      = "achievements"
	CategoryChallenges        = "challenges"
	CategoryHistoricalEvents  = "historical_events"
	CategoryIdentityDetails   = "identity_details"
	CategoryHealthContext     = "health_context"
	CategoryMedications       = "medications"
)

// FixedCategories lists every fixed category in document order.
var FixedCategories = []string{
	CategoryMemories,
	CategoryInterests,
	CategoryPreferences,
	CategoryPeople,
	CategoryPlaces,
	CategoryLifeRoles,
	CategoryDailyRoutines,
	CategoryValuesBeliefs,
	CategoryEmotionalPatterns,
	CategoryAchievements,
	CategoryChallenges,
	CategoryHistoricalEvents,
	CategoryIdentityDetails,
	CategoryHealthContext,
	CategoryMedications,
}

var dictCategories = map[string]bool{
	CategoryMemories:      true,
	CategoryDailyRoutines: true,
	CategoryMedications:   true,
}

// IsDictCategory reports whether the category holds structured records
// instead of strings.
func IsDictCategory(category string) bool {
	return dictCategories[category]
}

// IsFixedCategory reports whether the category is part of the fixed set.
func IsFixedCategory(category string) bool {
	_, ok := fixedCategorySet[category]
	return ok
}

var fixedCategorySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(FixedCategories))
	for _, c := range FixedCategories {
		set[c] = struct{}{}
	}
	return set
}()

// Document is the durable, category-typed memory store. It only ever grows:
// merge never removes or rewrites existing entries.
type Document struct {
	Memories          []Record            `json:"memories"`
	Interests         []string            `json:"interests"`
	Preferences       []string            `json:"preferences"`
	People            []string            `json:"people"`
	Places            []string            `json:"places"`
	LifeRoles         []string            `json:"life_roles"`
	DailyRoutines     []Record            `json:"daily_routines"`
	ValuesBeliefs     []string            `json:"values_beliefs"`
	EmotionalPatterns []string            `json:"emotional_patterns"`
	Achievements      []string            `json:"achievements"`
	Challenges        []string            `json:"challenges"`
	HistoricalEvents  []string            `json:"historical_events"`
	IdentityDetails   []string            `json:"identity_details"`
	HealthContext     []string            `json:"health_context"`
	Medications       []Record            `json:"medications"`
	Adaptive          map[string][]string `json:"adaptive_categories"`
	LastUpdated       *string             `json:"last_updated"`
}

// NewDocument returns an empty document with every category initialized, so
// serialized output always carries the full schema.
func NewDocument() Document {
	return Document{
		Memories:          []Record{},
		Interests:         []string{},
		Preferences:       []string{},
		People:            []string{},
		Places:            []string{},
		LifeRoles:         []string{},
		DailyRoutines:     []Record{},
		ValuesBeliefs:     []string{},
		EmotionalPatterns: []string{},
		Achievements:      []string{},
		Challenges:        []string{},
		HistoricalEvents:  []string{},
		IdentityDetails:   []string{},
		HealthContext:     []string{},
		Medications:       []Record{},
		Adaptive:          map[string][]string{},
	}
}

// Normalize backfills any category a loaded document is missing, preserving
// present data. Loading corrupt or partial documents must never lose schema.
func (d *Document) Normalize() {
	if d.Memories == nil {
		d.Memories = []Record{}
	}
	if d.Interests == nil {
		d.Interests = []string{}
	}
	if d.Preferences == nil {
		d.Preferences = []string{}
	}
	if d.People == nil {
		d.People = []string{}
	}
	if d.Places == nil {
		d.Places = []string{}
	}
	if d.LifeRoles == nil {
		d.LifeRoles = []string{}
	}
	if d.DailyRoutines == nil {
		d.DailyRoutines = []Record{}
	}
	if d.ValuesBeliefs == nil {
		d.ValuesBeliefs = []string{}
	}
	if d.EmotionalPatterns == nil {
		d.EmotionalPatterns = []string{}
	}
	if d.Achievements == nil {
		d.Achievements = []string{}
	}
	if d.Challenges == nil {
		d.Challenges = []string{}
	}
	if d.HistoricalEvents == nil {
		d.HistoricalEvents = []string{}
	}
	if d.IdentityDetails == nil {
		d.IdentityDetails = []string{}
	}
	if d.HealthContext == nil {
		d.HealthContext = []string{}
	}
	if d.Medications == nil {
		d.Medications = []Record{}
	}
	if d.Adaptive == nil {
		d.Adaptive = map[string][]string{}
	}
}

func (d *Document) stringList(category string) *[]string {
	switch category {
	case CategoryInterests:
		return &d.Interests
	case CategoryPreferences:
		return &d.Preferences
	case CategoryPeople:
		return &d.People
	case CategoryPlaces:
		return &d.Places
	case CategoryLifeRoles:
		return &d.LifeRoles
	case CategoryValuesBeliefs:
		return &d.ValuesBeliefs
	case CategoryEmotionalPatterns:
		return &d.EmotionalPatterns
	case CategoryAchievements:
		return &d.Achievements
	case CategoryChallenges:
		return &d.Challenges
	case CategoryHistoricalEvents:
		return &d.HistoricalEvents
	case CategoryIdentityDetails:
		return &d.IdentityDetails
	case CategoryHealthContext:
		return &d.HealthContext
	}
	return nil
}

func (d *Document) recordList(category string) *[]Record {
	switch category {
	case CategoryMemories:
		return &d.Memories
	case CategoryDailyRoutines:
		return &d.DailyRoutines
	case CategoryMedications:
		return &d.Medications
	}
	return nil
}
