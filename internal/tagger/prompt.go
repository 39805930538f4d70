package tagger

import (
	"fmt"
	"strings"

	"github.com/dcdoc/dcform-cli/internal/model"
)

// Prompt is one classification request. System carries the instructions and
// key catalog, which are identical for every form scanned with the same
// catalog; User carries the cells of one form.
type Prompt struct {
	System string
	User   string
}

const systemPreamble = `병원 약제위원회(DC) 신청 양식의 각 셀을 분석하여, 가장 적합한 정보 필드 키를 매핑하세요.`

const systemRules = `## 매핑 규칙
- 각 셀의 라벨/질문을 읽고, 위 핵심 카테고리 중 가장 가까운 것을 우선 선택하세요
- 세부 필드가 더 정확하면 세부 필드를 선택해도 됩니다
- 반드시 위 목록에 있는 키만 사용하세요
- 매우 불명확한 경우에만 "unknown"을 사용하세요
- confidence는 "high", "medium", "low" 중 하나입니다
- 모든 cell_id에 대해 정확히 하나의 매핑을 반환하세요

## JSON 응답 형식
{"mappings": [
  {"cell_id": "T0R1C2", "placeholder_key": "efficacy", "confidence": "high"},
  {"cell_id": "T0R1C3", "placeholder_key": "safety", "confidence": "medium"}
]}

반드시 JSON만 출력하세요.`

// BuildPrompt renders the classification prompt for cells against catalog.
func BuildPrompt(cells []model.TaggableCell, catalog *model.Catalog) Prompt {
	var sys strings.Builder
	sys.WriteString(systemPreamble)
	sys.WriteString("\n\n")

	var core []model.Field
	for _, f := range catalog.Fields() {
		if f.Core {
			core = append(core, f)
		}
	}
	if len(core) > 0 {
		sys.WriteString("## DC 신청 양식의 핵심 정보 (최우선 매핑 대상)\n")
		for i, f := range core {
			fmt.Fprintf(&sys, "%d. %s - %s\n", i+1, f.Key, f.Description)
		}
		sys.WriteString("\n")
	}

	sys.WriteString("## 사용 가능한 모든 키\n")
	for _, f := range catalog.Fields() {
		fmt.Fprintf(&sys, "%q: %q\n", f.Key, f.Description)
	}
	sys.WriteString("\n")
	sys.WriteString(systemRules)

	var user strings.Builder
	user.WriteString("## 분석할 양식 셀 목록\n")
	for _, c := range cells {
		fmt.Fprintf(&user, "%s | %s\n", c.ID(), questionLine(c))
	}

	return Prompt{System: sys.String(), User: user.String()}
}

// questionLine flattens the question onto one line so a multi-paragraph
// label cannot break the row format.
func questionLine(c model.TaggableCell) string {
	q := strings.Join(strings.Fields(c.Question), " ")
	if q == "" {
		return "(빈 셀)"
	}
	return q
}
