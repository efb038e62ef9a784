package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/models"
	"github.com/hireloop/talentsearch/internal/normalize"
	"github.com/hireloop/talentsearch/pkg/utils"
)

// SkillExtractor infers skills from resume text.
type SkillExtractor interface {
	ExtractSkills(ctx context.Context, text string) ([]models.ExtractedSkill, error)
}

const defaultMaxSkills = 15

// maxPromptRunes bounds the resume text sent to the model. Skills repeat
// through a resume, so truncation rarely loses signal.
const maxPromptRunes = 8000

// maxEvidenceLen bounds the stored evidence quote per skill.
const maxEvidenceLen = 240

const skillSystemPrompt = `You analyze resume text and list the technical and professional skills it demonstrates.
Respond with a JSON object of the form {"skills": [{"name": ..., "confidence": ..., "evidence": ...}]}.
name is the canonical skill name. confidence is a number between 0 and 1 reflecting how strongly the text supports the skill. evidence is a short quote or paraphrase from the text.
List at most %d skills, strongest first. Do not invent skills the text does not support.`

type skillRow struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

type skillResponse struct {
	Skills []skillRow `json:"skills"`
}

// LLMSkillExtractor asks an OpenAI-compatible chat model for skills in JSON
// mode. Malformed responses are retried up to three times before failing the
// job attempt.
type LLMSkillExtractor struct {
	client    llms.Model
	maxSkills int
	logger    *zap.Logger
}

// NewLLMSkillExtractor creates an extractor against baseURL using model.
// An empty token is replaced with "none" for local OpenAI-compatible services.
func NewLLMSkillExtractor(baseURL, token, model string, maxSkills int, logger *zap.Logger) (*LLMSkillExtractor, error) {
	if token == "" {
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(token),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create skill extraction client: %w", err)
	}
	if maxSkills <= 0 {
		maxSkills = defaultMaxSkills
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMSkillExtractor{client: client, maxSkills: maxSkills, logger: logger}, nil
}

func (e *LLMSkillExtractor) ExtractSkills(ctx context.Context, text string) ([]models.ExtractedSkill, error) {
	text = truncateRunes(text, maxPromptRunes)
	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf(skillSystemPrompt, e.maxSkills))},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	var parsed skillResponse
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			return nil, fmt.Errorf("generate skill extraction: %w", err)
		}
		if len(response.Choices) == 0 {
			return nil, nil
		}
		raw := stripCodeFences(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			lastErr = err
			e.logger.Warn("malformed skill extraction response",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("parse skill extraction response: %w", lastErr)
	}

	sort.SliceStable(parsed.Skills, func(i, j int) bool {
		return parsed.Skills[i].Confidence > parsed.Skills[j].Confidence
	})
	skills := make([]models.ExtractedSkill, 0, e.maxSkills)
	for _, row := range parsed.Skills {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		conf := row.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		skills = append(skills, models.ExtractedSkill{
			Name:           name,
			NormalizedName: normalize.Skill(name),
			Confidence:     conf,
			Evidence:       utils.Truncate(strings.TrimSpace(row.Evidence), maxEvidenceLen),
		})
		if len(skills) == e.maxSkills {
			break
		}
	}
	return skills, nil
}

// stripCodeFences removes markdown fences some models wrap around JSON
// output even in JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// VocabSkillExtractor matches a fixed vocabulary by substring. Serves as the
// offline extractor when no model endpoint is configured, and as the test
// double.
type VocabSkillExtractor struct {
	Vocabulary []string
	Confidence float64
}

func (v *VocabSkillExtractor) ExtractSkills(ctx context.Context, text string) ([]models.ExtractedSkill, error) {
	lower := strings.ToLower(text)
	conf := v.Confidence
	if conf == 0 {
		conf = 0.7
	}
	var skills []models.ExtractedSkill
	for _, name := range v.Vocabulary {
		if strings.Contains(lower, strings.ToLower(name)) {
			skills = append(skills, models.ExtractedSkill{
				Name:           name,
				NormalizedName: normalize.Skill(name),
				Confidence:     conf,
			})
			if len(skills) == defaultMaxSkills {
				break
			}
		}
	}
	return skills, nil
}
