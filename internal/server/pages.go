package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256 // pixels, comfortable for phone cameras

// handleSessionQR renders the sender link for a session as a PNG QR code.
func handleSessionQR(baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := tokenParam(c)
		if !ok {
			return
		}

		link := fmt.Sprintf("%s/mobile?token=%s", baseURL, token)
		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/png", png)
	}
}

var mobileTmpl = template.Must(template.New("mobile").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Send Files</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body{margin:0;font-family:system-ui,sans-serif;background:#f4f6fb;color:#1f2a44}
.card{background:#fff;border-radius:20px;padding:28px;max-width:480px;margin:40px auto;box-shadow:0 20px 40px rgba(15,23,42,.08);text-align:center}
label{display:block;padding:14px 18px;border:2px dashed #c7d2fe;border-radius:14px;cursor:pointer;color:#475569}
#s{color:#64748b;font-size:.9rem}
</style>
</head>
<body>
<div class="card">
<h2>Upload your files</h2>
<label><span id="fileLabel">Choose files</span>
<input type="file" id="f" multiple hidden>
</label>
<p id="s"></p>
</div>
<script>
const input=document.getElementById('f');
const status=document.getElementById('s');
input.addEventListener('change',()=>{
  if(!input.files.length) return;
  document.getElementById('fileLabel').textContent=input.files.length+' file(s) selected';
  const fd=new FormData();
  for(const x of input.files) fd.append('files',x);
  const xhr=new XMLHttpRequest();
  xhr.open('POST','/session/{{.Token}}/files');
  xhr.upload.onprogress=e=>{
    if(e.lengthComputable){
      status.innerText='Uploading '+Math.round((e.loaded/e.total)*100)+'%';
    }
  };
  xhr.onload=()=>{
    status.innerText=xhr.status===200?'Uploaded. You can close this tab':'Upload failed';
  };
  xhr.send(fd);
});
</script>
</body>
</html>`))

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<title>TempShare</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
body{margin:0;font-family:system-ui,sans-serif;background:#f4f6fb;color:#1f2a44;text-align:center}
.card{background:#fff;border-radius:20px;padding:28px;max-width:480px;margin:40px auto;box-shadow:0 20px 40px rgba(15,23,42,.08)}
img{width:256px;height:256px}
ul{text-align:left}
</style>
</head>
<body>
<h1>TempShare</h1>
<p>Scan the code with your phone to send files to this device.<br>No app, no login, nothing stored for long.</p>
<div class="card">
<img id="qr" alt="QR code">
<ul id="files"></ul>
</div>
<script>
let token='';
fetch('/session',{method:'POST'})
  .then(r=>r.json())
  .then(d=>{
    token=d.token;
    document.getElementById('qr').src='/session/'+token+'/qr';
    setInterval(refresh,3000);
  });
function refresh(){
  fetch('/session/'+token+'/files')
    .then(r=>r.ok?r.json():{files:[]})
    .then(d=>{
      const ul=document.getElementById('files');
      ul.innerHTML='';
      for(const f of d.files){
        const li=document.createElement('li');
        const a=document.createElement('a');
        a.href='/session/'+token+'/files/'+encodeURIComponent(f.name);
        a.textContent=f.name+' ('+f.size+' bytes)';
        li.appendChild(a);
        ul.appendChild(li);
      }
    });
}
</script>
</body>
</html>`))

// handleMobilePage serves the camera-first upload page a phone lands on
// after scanning the QR code.
func handleMobilePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if _, err := uuid.Parse(token); err != nil {
			c.String(http.StatusBadRequest, "Invalid QR")
			return
		}

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = mobileTmpl.Execute(c.Writer, gin.H{"Token": token})
	}
}

// handleIndexPage serves the receiver landing page: it creates a session,
// shows its QR code and polls the file listing.
func handleIndexPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = indexTmpl.Execute(c.Writer, nil)
	}
}
