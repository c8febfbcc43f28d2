package devsim

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Base Manager Simulator</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#f5f5f5;color:#333;line-height:1.6}
.hdr{background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);color:#fff;padding:14px 20px}
.hdr h1{font-size:18px;font-weight:600}
.content{max-width:900px;margin:0 auto;padding:20px}
.card{background:#fff;border-radius:8px;padding:20px;margin-bottom:16px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
.card h2{font-size:16px;margin-bottom:12px;padding-bottom:8px;border-bottom:1px solid #eee}
.row{display:flex;justify-content:space-between;padding:6px 0;border-bottom:1px solid #f0f0f0;font-family:monospace}
.row:last-child{border-bottom:none}
.btn{padding:8px 16px;border-radius:6px;border:none;cursor:pointer;font-size:14px;background:#667eea;color:#fff}
.btn:disabled{opacity:.5;cursor:not-allowed}
</style>
</head>
<body>
<div class="hdr"><h1>Base Manager Simulator</h1></div>
<div class="content">
  <div class="card">
    <h2>Task</h2>
    <div class="row"><span>state</span><span id="task-state">{{.State}}</span></div>
    <div style="margin-top:12px;display:flex;gap:8px">
      <button class="btn" id="id_start_task" onclick="send('id_start_task')">Start</button>
      <button class="btn" id="id_stop_task" onclick="send('id_stop_task')">Stop</button>
    </div>
  </div>
  <div class="card">
    <h2>Fields</h2>
    {{range .Fields}}<div class="row"><span>{{.ID}}</span><span>{{.Value}}</span></div>
    {{else}}<p>No fields set yet.</p>{{end}}
  </div>
</div>
<script>
function send(id) {
  fetch('setDataReq?name=' + id + '&value=0').then(function() { location.reload(); });
}
</script>
</body>
</html>`
