package server

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>Policy Q&amp;A</title>
<style>
    body { font-family: Arial, sans-serif; margin: 40px; background-color: #f4f4f9; }
    .container { max-width: 800px; margin: auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 0 10px rgba(0, 0, 0, 0.1); }
    h1 { color: #333; text-align: center; }
    form { display: flex; margin-bottom: 20px; }
    input[type="text"] { flex-grow: 1; padding: 10px; border: 1px solid #ccc; border-radius: 4px 0 0 4px; }
    input[type="submit"] { background-color: #007bff; color: white; padding: 10px 15px; border: none; border-radius: 0 4px 4px 0; cursor: pointer; }
    .answer-box { border: 1px solid #ddd; padding: 15px; border-radius: 4px; background-color: #e9ecef; white-space: pre-wrap; }
    .sources { margin-top: 10px; font-size: 0.9em; color: #555; }
    .error { color: #b00020; }
</style>
</head>
<body>
<div class="container">
    <h1>Policy Q&amp;A</h1>

    <form method="post" action="/">
        <input type="text" name="question" value="{{.Question}}" placeholder="Ask a question about company policies..." required>
        <input type="submit" value="Ask">
    </form>
{{if .Error}}
    <p class="error">{{.Error}}</p>
{{end}}
{{if .Answer}}
    <h2>Answer:</h2>
    <div class="answer-box">{{.Answer}}{{if .Sources}}
        <div class="sources">Sources: {{range $i, $s := .Sources}}{{if $i}}; {{end}}{{$s}}{{end}}</div>{{end}}
    </div>
{{end}}
    <p style="text-align: center; margin-top: 20px;">Use the /chat endpoint for API access, or the /health endpoint for status.</p>
</div>
</body>
</html>
`))
