package hub

import "html/template"

const dashboardName = "dashboard.html"

type dashboardData struct {
	Instance string
	Version  string
	Uptime   string
	Clients  []string
	WSPath   string
}

var dashboardTemplate = template.Must(template.New(dashboardName).Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>filedrop · {{.Instance}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; max-width: 40rem; }
li { font-family: monospace; }
.muted { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<h1>{{.Instance}}</h1>
<p class="muted">{{.Version}} · up {{.Uptime}} · clients connect to <code>{{.WSPath}}</code></p>

<h2>Online clients ({{len .Clients}})</h2>
{{if .Clients}}
<ul>
{{range .Clients}}<li>{{.}}</li>
{{end}}
</ul>
{{else}}
<p>No clients connected.</p>
{{end}}

<h2>Send a file</h2>
<form method="post" action="/upload" enctype="multipart/form-data">
<p><select name="target">{{range .Clients}}<option>{{.}}</option>{{end}}</select></p>
<p><input type="file" name="file" required></p>
<p><button type="submit"{{if not .Clients}} disabled{{end}}>Send</button></p>
</form>
</body>
</html>
`))
