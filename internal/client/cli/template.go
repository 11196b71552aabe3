package cli

const viewTemplate = `
=== {{.Branch}} ===

Head:   {{.Head}}
{{- if .Locked }}
Mode:   viewing history (read-only)
{{- end}}
{{if .Entries}}
{{range .Entries}}{{.Key}} = {{.Value}}
{{end}}{{else}}
(empty)
{{end}}`

const branchesTemplate = `
=== Branches ===
{{range .}}
{{if .Active}}*{{else}} {{end}} {{.Title}}  {{.ID}}  head {{.Head}}
{{- if .LastCommit }}  last commit {{.LastCommit}}{{end}}
{{- end}}
`
