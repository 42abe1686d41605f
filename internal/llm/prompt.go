package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt is the fixed instruction prepended to every extraction call.
const SystemPrompt = `당신은 한국어 외주용역 계약서 분석 전문가입니다.
계약서 텍스트를 분석하여 추진 일정과 관련된 모든 정보를 체계적으로 추출해야 합니다.

다음 정보를 찾아 추출해 주세요:

1. **계약 기본 정보**
   - 계약명/사업명, 기업명, 수급자, 발주처
   - 계약일, 계약 착수일 (시작일), 계약 완료일 (종료일)
   - 총 사업 기간
   - 계약 금액, 계약금 지급 방식, 입금예정일

2. **단계별 추진 일정**
   각 단계에 대해 다음을 추출:
   - 단계명 (예: 1단계 설계, 2단계 개발)
   - 일정 유형: 착수, 완료, 설계, 개발, 테스트, 납품, 중간보고, 최종보고, 검수, 인도
   - 시작일/종료일
   - 산출물 목록

3. **주요 마일스톤**
   - 중간보고 일정
   - 최종보고 일정
   - 검수 일정
   - 인도 일정

4. **업무 목록 생성**
   추출된 일정을 기반으로 실행 가능한 업무 목록을 생성하세요.
   - 각 단계별 세부 업무
   - 마감일 설정
   - 우선순위 (긴급, 높음, 보통, 낮음)

한국어 날짜 표현 패턴을 인식해 주세요:
- "2024년 3월 15일" → "2024-03-15"
- "2024.03.15" → "2024-03-15"
- "착수일로부터 N일 이내" → 상대적 표현으로 기록`

// JSONContract describes the required response shape to the model.
const JSONContract = `아래 JSON 형식으로 응답해 주세요:
{
    "contract_schedule": {
        "contract_name": "계약명 또는 null",
        "company_name": "기업명 또는 null",
        "contractor": "수급자 또는 null",
        "client": "발주처 또는 null",
        "contract_date": "YYYY-MM-DD 또는 원문 또는 null",
        "contract_start_date": "YYYY-MM-DD 또는 원문",
        "contract_end_date": "YYYY-MM-DD 또는 원문",
        "total_duration_days": 숫자 또는 null,
        "contract_amount": "계약 금액 또는 null",
        "payment_method": "지급 방식 또는 null",
        "payment_due_date": "YYYY-MM-DD 또는 원문 또는 null",
        "schedules": [
            {
                "phase": "단계명",
                "schedule_type": "착수/완료/설계/개발/테스트/납품/중간보고/최종보고/검수/인도/기타",
                "start_date": "YYYY-MM-DD 또는 null",
                "end_date": "YYYY-MM-DD 또는 null",
                "description": "설명",
                "deliverables": ["산출물1", "산출물2"]
            }
        ],
        "milestones": ["마일스톤1", "마일스톤2"]
    },
    "task_list": [
        {
            "task_id": 1,
            "task_name": "업무명",
            "phase": "해당 단계",
            "due_date": "YYYY-MM-DD 또는 null",
            "priority": "긴급/높음/보통/낮음",
            "status": "대기"
        }
    ],
    "raw_text": "계약서 원문 전체 텍스트 (이미지인 경우 OCR하여 원문을 그대로 옮겨 적기, 텍스트인 경우 빈 문자열)"
}`

const (
	textInstruction  = "다음 외주용역 계약서에서 추진 일정 정보를 추출하고 업무 목록을 생성해 주세요:"
	imageInstruction = "다음은 외주용역 계약서의 각 페이지 이미지입니다. " +
		"모든 페이지를 분석하여 추진 일정 정보를 추출하고 업무 목록을 생성해 주세요.\n\n"
	supplementHeader   = "\n\n추가로 추출된 텍스트 (참고용):\n"
	rawTextInstruction = "\n\n중요: 이미지에 보이는 계약서의 전체 텍스트를 raw_text 필드에 그대로 옮겨 적어주세요.\n\n"
)

// PageTag labels the image that follows it.
func PageTag(page int) string {
	return fmt.Sprintf("--- 페이지 %d ---\n", page)
}

// BuildTextParts composes the single-part text-mode request. text is cut to
// maxChars runes.
func BuildTextParts(text string, maxChars int) []Part {
	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(textInstruction)
	b.WriteString("\n\n---\n")
	b.WriteString(truncateRunes(text, maxChars))
	b.WriteString("\n---\n\n")
	b.WriteString(JSONContract)
	return []Part{TextPart(b.String())}
}

// BuildMultimodalParts composes the page-tagged image request. A non-blank
// supplement is appended cut to maxSupplement runes.
func BuildMultimodalParts(req ExtractRequest, maxSupplement int) []Part {
	parts := make([]Part, 0, 2*len(req.Images)+4)
	parts = append(parts, TextPart(SystemPrompt+"\n\n"), TextPart(imageInstruction))
	for i, img := range req.Images {
		parts = append(parts, TextPart(PageTag(i+1)), ImagePart(img))
	}
	if strings.TrimSpace(req.Text) != "" {
		parts = append(parts, TextPart(supplementHeader+truncateRunes(req.Text, maxSupplement)))
	}
	return append(parts, TextPart(rawTextInstruction+JSONContract))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
