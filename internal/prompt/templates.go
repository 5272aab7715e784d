package prompt

import "text/template"

// The discussion prompt embeds all curated context and is sent with an
// empty conversation history. Feeding the raw history to the backend as
// well makes models answer the history instead of the instructions.
const discussionTemplateText = `You are taking part in a group discussion between figures of scripture.

[Your role this turn]
{{.RoleInstruction}}
{{- if .Hint}}
Approach: {{.Hint}}.
{{- end}}

[The question under discussion]
{{.Question}}

{{- if .EvolvedDescription}}

[How you have come across in past conversations]
{{.EvolvedDescription}}
{{- end}}

{{- if .Stances}}

[Positions you have taken before]
{{- range .Stances}}
- On {{.Topic}}: {{.Position}}
{{- end}}
{{- end}}

{{- if .Memories}}

[What you have said on this subject before]
{{- range .Memories}}
- {{.}}
{{- end}}
{{- end}}

{{- if .Passages}}

[Passages that may bear on the question]
{{- range .Passages}}
- {{.}}
{{- end}}
{{- end}}

{{- if .Others}}

[What the others have just said]
{{- range .Others}}
{{.Name}}: {{.Content}}
{{- end}}
{{- end}}

{{- if .Own}}

[Your own statements so far - DO NOT REPEAT any of these]
{{- range .Own}}
- {{.}}
{{- end}}
{{- end}}

Reply in 2-3 sentences, in your own voice, speaking to the group.`

const chatTemplateText = `{{- if .Instruction}}{{.Instruction}}

{{end -}}
{{- if .EvolvedDescription}}
[How you have come across in past conversations]
{{.EvolvedDescription}}
{{- end}}

{{- if .Stances}}

[Positions you have taken before]
{{- range .Stances}}
- On {{.Topic}}: {{.Position}}
{{- end}}
{{- end}}

{{- if .Memories}}

[What you remember discussing with this person]
{{- range .Memories}}
- {{.}}
{{- end}}
{{- end}}

{{- if .Passages}}

[Passages that may bear on their words]
{{- range .Passages}}
- {{.}}
{{- end}}
{{- end}}

[They say to you]
{{.UserInput}}

Answer them directly, in your own voice.`

var discussionTemplate = template.Must(template.New("discussion").Parse(discussionTemplateText))

var chatTemplate = template.Must(template.New("chat").Parse(chatTemplateText))
