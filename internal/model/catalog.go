package model

// Field is one semantic field key of the catalog.
type Field struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description" yaml:"description"`
	Query       string `json:"query,omitempty" yaml:"query,omitempty"`
	Core        bool   `json:"core,omitempty" yaml:"core,omitempty"`
}

// Catalog is an ordered, indexed set of fields. A Catalog is never mutated
// after construction and may be shared between goroutines.
type Catalog struct {
	fields []Field
	byKey  map[string]int
}

// NewCatalog indexes fields by key. Later duplicates of a key are dropped.
func NewCatalog(fields []Field) *Catalog {
	c := &Catalog{byKey: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.Key == "" {
			continue
		}
		if _, dup := c.byKey[f.Key]; dup {
			continue
		}
		c.byKey[f.Key] = len(c.fields)
		c.fields = append(c.fields, f)
	}
	return c
}

// Fields returns a copy of the fields in catalog order.
func (c *Catalog) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	return len(c.fields)
}

// ByKey returns the field for key.
func (c *Catalog) ByKey(key string) (Field, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// Has reports whether key is in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

// Keys returns the keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.fields))
	for i, f := range c.fields {
		keys[i] = f.Key
	}
	return keys
}

// Query returns the retrieval query for key, falling back to the key itself.
func (c *Catalog) Query(key string) string {
	if f, ok := c.ByKey(key); ok && f.Query != "" {
		return f.Query
	}
	return key
}

// DefaultCatalog returns the standard DC form fields: the six core
// categories every hospital form asks for, followed by finer-grained fields.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultFields)
}

var defaultFields = []Field{
	{
		Key:         "indication_dosage",
		Description: "허가사항: 허가된 적응증, 용법용량, 투여방법, 투여기간",
		Query:       "What are the approved indications, dosage, route and duration of administration for this drug?",
		Core:        true,
	},
	{
		Key:         "application_reason",
		Description: "신청사유: 병원 도입 필요성 및 배경",
		Query:       "Why should this drug be introduced to the hospital formulary? Summarize the unmet need and clinical background.",
		Core:        true,
	},
	{
		Key:         "efficacy",
		Description: "효능/유효성: 임상시험 결과, 치료효과",
		Query:       "What are the efficacy and clinical outcomes data for this drug? Include response rates, survival data, and primary endpoint results.",
		Core:        true,
	},
	{
		Key:         "safety",
		Description: "안전성: 부작용, 이상반응, 주의사항, 금기",
		Query:       "What are the adverse events, safety profile, and toxicity data? Include incidence rates of serious adverse events and most common side effects.",
		Core:        true,
	},
	{
		Key:         "cost_effectiveness",
		Description: "비용/경제성: 약가, 비용 대비 효과",
		Query:       "What is the cost-effectiveness or pharmacoeconomic data for this drug? Include comparison with standard of care.",
		Core:        true,
	},
	{
		Key:         "other_considerations",
		Description: "기타: 장점, 편리성, 모니터링 등 추가 정보",
		Query:       "What other practical considerations apply to this drug, such as convenience, monitoring requirements or patient support?",
		Core:        true,
	},
	{
		Key:         "efficacy_summary",
		Description: "효능 및 유효성 데이터 요약",
		Query:       "Summarize the efficacy data for this drug, including primary endpoint results.",
	},
	{
		Key:         "safety_profile",
		Description: "안전성 프로파일 및 이상반응",
		Query:       "Describe the safety profile and the most common adverse reactions of this drug.",
	},
	{
		Key:         "dosage_administration",
		Description: "용법·용량",
		Query:       "What is the recommended dosage and administration schedule for this drug? Include dose modifications and infusion guidelines.",
	},
	{
		Key:         "clinical_trials",
		Description: "주요 임상시험 결과",
		Query:       "What are the key clinical trial results? Include trial names, patient populations, primary and secondary endpoints.",
	},
	{
		Key:         "drug_interaction",
		Description: "약물 상호작용",
		Query:       "What are the known drug interactions and contraindicated medications?",
	},
	{
		Key:         "contraindication",
		Description: "금기사항",
		Query:       "What are the contraindications and warnings for this drug? Include special populations such as pregnancy, hepatic/renal impairment.",
	},
	{
		Key:         "pharmacokinetics",
		Description: "약동학 정보",
		Query:       "What are the pharmacokinetic properties? Include half-life, distribution, metabolism, and elimination data.",
	},
	{
		Key:         "storage_handling",
		Description: "보관 및 취급",
		Query:       "What are the storage conditions and handling instructions for this drug?",
	},
	{
		Key:         "comparison",
		Description: "기존 치료제 대비 비교 우위",
		Query:       "How does this drug compare to existing treatments or standard of care? Include head-to-head data or indirect comparisons.",
	},
}
