// Package narrator turns resolved outcomes into flavour text with Gemini.
// It only ever reads world snapshots; nothing it returns feeds back into
// the rules.
package narrator

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	"github.com/tatianab/idolab/internal/models"
	"github.com/tatianab/idolab/internal/rules"
)

//go:embed prompts/press_release.txt
var pressReleasePrompt string

//go:embed prompts/recap.txt
var recapPrompt string

var (
	pressReleaseTmpl = template.Must(template.New("press_release").Parse(pressReleasePrompt))
	recapTmpl        = template.Must(template.New("recap").Parse(recapPrompt))
)

const modelName = "gemini-2.5-flash"

// Article is a generated piece of copy.
type Article struct {
	Headline string `yaml:"headline"`
	Body     string `yaml:"body"`
}

func (a Article) String() string {
	return a.Headline + "\n\n" + a.Body
}

type Narrator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func New(ctx context.Context, apiKey string) (*Narrator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Narrator{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (n *Narrator) Close() {
	n.client.Close()
}

// PressRelease writes copy about the latest outcome.
func (n *Narrator) PressRelease(ctx context.Context, w *models.World, out rules.Outcome) (Article, error) {
	prompt, err := BuildPressRelease(w, out)
	if err != nil {
		return Article{}, err
	}
	return n.generate(ctx, prompt)
}

// Recap writes a column summarizing the world's event log.
func (n *Narrator) Recap(ctx context.Context, w *models.World) (Article, error) {
	prompt, err := BuildRecap(w)
	if err != nil {
		return Article{}, err
	}
	return n.generate(ctx, prompt)
}

func (n *Narrator) generate(ctx context.Context, prompt string) (Article, error) {
	resp, err := n.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Article{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Article{}, fmt.Errorf("no content returned from Gemini")
	}
	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Article{}, fmt.Errorf("unexpected response type from Gemini")
	}
	return ParseArticle(string(text))
}

type promptData struct {
	Company    string
	Turn       int
	Phase      models.Phase
	Cash       int
	InDebt     bool
	Reputation int
	Roster     []models.Trainee
	Log        []string
	Summary    string
	Changes    string
}

func newPromptData(w *models.World) promptData {
	return promptData{
		Company:    w.Company.Name,
		Turn:       w.Calendar.Turn,
		Phase:      w.Calendar.Phase,
		Cash:       w.Company.Cash,
		InDebt:     w.Company.InDebt,
		Reputation: w.Company.Reputation,
		Roster:     w.ListTrainees(models.WithStatus(models.StatusTrainee, models.StatusDebuted)),
		Log:        w.Log,
	}
}

// BuildPressRelease renders the press release prompt.
func BuildPressRelease(w *models.World, out rules.Outcome) (string, error) {
	data := newPromptData(w)
	data.Summary = out.Summary
	data.Changes = out.Delta.String()
	var buf bytes.Buffer
	if err := pressReleaseTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildRecap renders the recap prompt.
func BuildRecap(w *models.World) (string, error) {
	var buf bytes.Buffer
	if err := recapTmpl.Execute(&buf, newPromptData(w)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseArticle decodes a model reply, tolerating a fenced code block.
func ParseArticle(text string) (Article, error) {
	clean := strings.TrimSpace(text)
	clean = strings.TrimPrefix(clean, "```yaml")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")

	var a Article
	if err := yaml.Unmarshal([]byte(clean), &a); err != nil {
		return Article{}, fmt.Errorf("failed to parse article YAML: %v\nOutput was: %s", err, clean)
	}
	if a.Headline == "" {
		return Article{}, fmt.Errorf("article has no headline\nOutput was: %s", clean)
	}
	return a, nil
}
