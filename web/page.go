// ABOUTME: Minimal chat page served at / with markdown answer rendering.
// ABOUTME: The page talks to the JSON APIs; answers come back pre-rendered via goldmark.
package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
)

// markdownToHTML converts a markdown string to HTML using goldmark. Raw HTML
// in the input stays escaped by goldmark's default renderer.
func markdownToHTML(input string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(input), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var chatPage = template.Must(template.New("chat").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>tubular</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
  h1 { font-size: 1.4rem; }
  #log { border: 1px solid #ccc; border-radius: 6px; padding: 1rem; min-height: 16rem; }
  .you { color: #246; font-weight: 600; }
  .bot { margin: .5rem 0 1rem; }
  .sources { color: #888; font-size: .85rem; }
  form { display: flex; gap: .5rem; margin-top: 1rem; }
  input[type=text] { flex: 1; padding: .5rem; }
</style>
</head>
<body>
<h1>tubular &mdash; ask your videos</h1>
<div id="log"></div>
<form id="ask">
  <input type="text" id="q" placeholder="Ask a question..." autocomplete="off">
  <button type="submit">Ask</button>
</form>
<script>
const log = document.getElementById("log");
document.getElementById("ask").addEventListener("submit", async (e) => {
  e.preventDefault();
  const q = document.getElementById("q").value.trim();
  if (!q) return;
  document.getElementById("q").value = "";
  log.insertAdjacentHTML("beforeend", "<div class='you'></div>");
  log.lastChild.textContent = "You: " + q;
  const resp = await fetch("/api/ask", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({question: q}),
  });
  const data = await resp.json();
  if (!resp.ok) {
    log.insertAdjacentHTML("beforeend", "<div class='bot'>Error: " + (data.error || resp.status) + "</div>");
    return;
  }
  log.insertAdjacentHTML("beforeend", "<div class='bot'>" + data.answer_html + "</div>");
  if (data.sources && data.sources.length) {
    const list = data.sources.map(s => s.source_number + ". " + s.video_id).join("  ");
    log.insertAdjacentHTML("beforeend", "<div class='sources'></div>");
    log.lastChild.textContent = list;
  }
  log.scrollTop = log.scrollHeight;
});
</script>
</body>
</html>
`))

func (s *Server) handleChatPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatPage.Execute(w, nil); err != nil {
		s.log.Error("render chat page", "error", err)
	}
}
