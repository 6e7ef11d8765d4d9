package assistant

import (
	"text/template"
	"time"

	"github.com/hupe1980/agronix/agronomy"
	"github.com/hupe1980/agronix/crop"
	"github.com/hupe1980/agronix/internal/util"
)

// DefaultCropName is the crop the persona talks about.
const DefaultCropName = "Strawberries 'San Andreas'"

// DefaultPrompt is the system instruction template. It is executed with a
// PromptData value.
const DefaultPrompt = `You are AgroNix, an AI assistant for strawberry growers.

RESPONSE RULES:
• Keep answers CONCISE (150 words at most)
• Use emojis to make the information visual
• Identify problems and give specific solutions
• Create calendar tasks when needed
• Be friendly and professional
• If you detect critical problems, recommend immediate actions

🌱 **CURRENT DATA - {{upper .Crop}}**

📊 **Main parameters:**
{{range .Parameters}}• {{.Label}}: {{fixed .Digits .Value}} {{.Unit}} ({{.Status}})
{{end}}• Pest risk: {{.PestRisk}}

🚨 **Current alerts:**
{{if .Alerts}}{{join .Alerts "\n"}}{{else}}✅ All conditions are normal{{end}}

💡 **Recommendations:**
{{if .Recommendations}}{{join .Recommendations "\n"}}{{else}}🎯 Keep the current conditions{{end}}

⏰ **Last update:** {{.UpdatedAt}}

TASKS CREATED AUTOMATICALLY TODAY:
{{range .Tasks}}✅ {{.}}
{{else}}🔄 No new tasks were created today
{{end}}
Today is {{.Today}}. Analyze the data and answer the user's question in a practical, useful way.`

// PromptData is the value the instruction template is executed with.
type PromptData struct {
	Crop            string
	Parameters      []ParameterView
	PestRisk        crop.PestRisk
	Alerts          []string
	Recommendations []string
	Tasks           []string
	UpdatedAt       string
	Today           string
}

// ParameterView is one telemetry line of the prompt.
type ParameterView struct {
	Name   crop.Parameter
	Label  string
	Value  float64
	Digits int
	Unit   string
	Status agronomy.Status
}

func newPromptData(cropName string, snap crop.Snapshot, a agronomy.Assessment, tasks []string, now time.Time) PromptData {
	status := agronomy.Summarize(snap)

	params := make([]ParameterView, 0, len(crop.Parameters()))
	for _, p := range crop.Parameters() {
		v, _ := snap.Value(p)
		digits := 1
		if p == crop.Conductivity {
			digits = 2
		}
		params = append(params, ParameterView{
			Name:   p,
			Label:  p.Label(),
			Value:  v,
			Digits: digits,
			Unit:   p.Unit(),
			Status: status[p],
		})
	}

	return PromptData{
		Crop:            cropName,
		Parameters:      params,
		PestRisk:        snap.PestRisk,
		Alerts:          a.Alerts,
		Recommendations: a.Recommendations,
		Tasks:           tasks,
		UpdatedAt:       snap.UpdatedAt.Format(time.DateTime),
		Today:           now.Format(time.DateOnly),
	}
}

func parsePrompt(text string) (*template.Template, error) {
	if text == "" {
		text = DefaultPrompt
	}
	return util.ParseTemplate("instructions", text)
}
