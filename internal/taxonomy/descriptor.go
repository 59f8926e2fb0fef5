package taxonomy

// UncertainSentinel is emitted for a closed-vocabulary field when the
// extractor cannot confidently pick an allowed value. It is itself a valid
// value everywhere a controlled vocabulary is enforced.
const UncertainSentinel = "uncertain"

// Descriptor is the validated, normalized analysis record for one Image.
type Descriptor struct {
	PromptVersion         string                `json:"promptVersion"`
	ExecutiveSummary      string                `json:"executiveSummary"`
	Garments              []Garment             `json:"garments"`
	ModelDemographics     ModelDemographics     `json:"modelDemographics"`
	Photography           Photography           `json:"photography"`
	StylingContext        string                `json:"stylingContext"`
	ContextualAttributes  ContextualAttributes  `json:"contextualAttributes"`
	TechnicalFashionNotes string                `json:"technicalFashionNotes"`
	Metadata              DescriptorMetadata    `json:"metadata"`
}

// Garment describes one clothing item detected in an image.
type Garment struct {
	Type               string   `json:"type"`
	Silhouette         string   `json:"silhouette"`
	Collar             string   `json:"collar,omitempty"`
	SleeveLength       string   `json:"sleeveLength,omitempty"`
	Fabric             Fabric   `json:"fabric"`
	ColorPalette       []Color  `json:"colorPalette"`
	ConstructionDetails []string `json:"constructionDetails"`
	LayerIndex         int      `json:"layerIndex"`
}

// Fabric describes the material composition of a Garment.
type Fabric struct {
	PrimaryMaterial string `json:"primaryMaterial"`
	Weave           string `json:"weave"`
	Finish          string `json:"finish"`
	Weight          string `json:"weight"`
}

// Color is one entry in a Garment's color_palette.
type Color struct {
	ColorName string `json:"colorName"`
	Placement string `json:"placement"`
}

// ModelDemographics holds optional, never-guessed observations about the
// model in the photograph.
type ModelDemographics struct {
	EthnicityObserved  string `json:"ethnicityObserved,omitempty"`
	BodyTypeOverall    string `json:"bodyTypeOverall,omitempty"`
	AgeBucket          string `json:"ageBucket,omitempty"`
	GenderPresentation string `json:"genderPresentation,omitempty"`
}

// Photography holds shot-composition, lighting, camera, and background facts.
type Photography struct {
	ShotCompositionType string   `json:"shotCompositionType"`
	Lighting            Lighting `json:"lighting"`
	Camera              Camera   `json:"camera"`
	Background          string   `json:"background"`
}

// Lighting describes the light source of a shot.
type Lighting struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

// Camera describes the camera placement of a shot.
type Camera struct {
	Angle  string `json:"angle"`
	Height string `json:"height"`
}

// ContextualAttributes holds the season/occasion/mood of the shot.
type ContextualAttributes struct {
	Season        string `json:"season"`
	Occasion      string `json:"occasion"`
	MoodAesthetic string `json:"moodAesthetic"`
}

// DescriptorMetadata holds the mechanically-derived quality metrics: fill
// rate and per-field confidence, not trusted blindly from the model.
type DescriptorMetadata struct {
	OverallConfidence      float64            `json:"overallConfidence"`
	CompletenessPercentage float64            `json:"completenessPercentage"`
	FieldConfidence        map[string]float64 `json:"fieldConfidence,omitempty"`
}

// DescriptorCorrection records one logical-consistency rule firing
// against a Descriptor.
type DescriptorCorrection struct {
	FieldPath      string `json:"fieldPath"`
	AIValue        string `json:"aiValue"`
	CorrectedValue string `json:"correctedValue"`
	RuleID         string `json:"ruleId"`
}
