package liftcheck

// Defect is the structured record attached to a failed checklist item.
// A defect is never committed to an inspection without at least one photo.
type Defect struct {
	DefectType  DefectType             `json:"defectType,omitempty"`
	Severity    Severity               `json:"severity"`
	Timeframe   RectificationTimeframe `json:"rectificationTimeframe"`
	Notes       string                 `json:"notes,omitempty"`
	Photos      []Photo                `json:"photos"`
	QuoteStatus QuoteStatus            `json:"quoteStatus,omitempty"`
}

// DefectType classifies a defect.
type DefectType string

const (
	DefectTypeMechanical   DefectType = "Mechanical"
	DefectTypeElectrical   DefectType = "Electrical"
	DefectTypeStructural   DefectType = "Structural"
	DefectTypeSafetyDevice DefectType = "Safety Device"
	DefectTypeOperational  DefectType = "Operational"
	DefectTypeCosmetic     DefectType = "Cosmetic"
)

// IsValid returns true if the type is a recognized value.
func (t DefectType) IsValid() bool {
	switch t {
	case DefectTypeMechanical, DefectTypeElectrical, DefectTypeStructural,
		DefectTypeSafetyDevice, DefectTypeOperational, DefectTypeCosmetic:
		return true
	}
	return false
}

// Severity represents the severity level of a defect.
type Severity string

const (
	SeverityMinor    Severity = "Minor"
	SeverityMajor    Severity = "Major"
	SeverityCritical Severity = "Critical"
)

// IsValid returns true if the severity is a recognized value.
func (s Severity) IsValid() bool {
	return s.Weight() > 0
}

// Weight returns a numeric weight for sorting by severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// RectificationTimeframe is how soon a defect must be fixed.
type RectificationTimeframe string

const (
	TimeframeImmediately       RectificationTimeframe = "Immediately"
	TimeframeWithin7Days       RectificationTimeframe = "Within 7 Days"
	TimeframeWithin30Days      RectificationTimeframe = "Within 30 Days"
	TimeframeBeforeNextService RectificationTimeframe = "Before Next Service"
)

// IsValid returns true if the timeframe is a recognized value.
func (t RectificationTimeframe) IsValid() bool {
	switch t {
	case TimeframeImmediately, TimeframeWithin7Days, TimeframeWithin30Days, TimeframeBeforeNextService:
		return true
	}
	return false
}

// QuoteStatus flags a defect for the external quoting workflow.
type QuoteStatus string

const (
	QuoteNow   QuoteStatus = "Quote Now"
	QuoteLater QuoteStatus = "Quote Later"
)

// IsValid returns true if the quote status is a recognized value.
func (q QuoteStatus) IsValid() bool {
	return q == QuoteNow || q == QuoteLater
}

// IsCriticalImmediate reports whether the defect forces the equipment to
// Unsafe to Operate.
func (d *Defect) IsCriticalImmediate() bool {
	return d != nil && d.Severity == SeverityCritical && d.Timeframe == TimeframeImmediately
}

// DefectDetails is the technician-supplied content of a defect.
type DefectDetails struct {
	DefectType DefectType
	Severity   Severity
	Timeframe  RectificationTimeframe
	Notes      string
	Photos     []Photo
}

// validate checks enumerated fields and photo limits. The photo presence
// rule is enforced separately so it surfaces as EMISSINGPHOTO.
func (d DefectDetails) validate() error {
	fields := make(map[string]string)
	if d.DefectType != "" && !d.DefectType.IsValid() {
		fields["defectType"] = "Unknown defect type"
	}
	if !d.Severity.IsValid() {
		fields["severity"] = "Severity must be Minor, Major or Critical"
	}
	if !d.Timeframe.IsValid() {
		fields["rectificationTimeframe"] = "Unknown rectification timeframe"
	}
	if len(fields) > 0 {
		return ErrorWithFields(fields)
	}
	return validatePhotoList(d.Photos)
}

// clone returns a deep copy so callers can never alias a committed photo list.
func (d *Defect) clone() *Defect {
	if d == nil {
		return nil
	}
	c := *d
	c.Photos = clonePhotos(d.Photos)
	return &c
}
