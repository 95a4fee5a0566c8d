package stub

import "html/template"

type loginData struct {
	Action   string
	Username string
	Errors   []string
}

type homeData struct {
	User      string
	Logout    string
	Indicator string
	DelayMS   int64
	Alert     string
}

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Laboratory - Login</title></head>
<body>
  <h1>Laboratory Information System</h1>
  <form method="post" action="{{.Action}}">
    {{range .Errors}}<div class="field-error">{{.}}</div>
    {{end}}
    <label for="loginName">Username</label>
    <input id="loginName" name="loginName" type="text" value="{{.Username}}">
    <label for="password">Password</label>
    <input id="password" name="password" type="password">
    <button id="submitButton" type="submit">Log in</button>
  </form>
</body>
</html>
`))

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>Laboratory - Home</title></head>
<body>
  <h1 class="banner">Welcome {{.User}}</h1>
  <ul id="menu">
    <li><a href="SampleEntry.do">Sample entry</a></li>
    <li><a href="Results.do">Results</a></li>
    <li><a id="logoutLink" href="{{.Logout}}">Log out</a></li>
  </ul>
  <button id="discardSample" type="button" onclick="document.getElementById('sampleStatus').textContent = confirm('Discard sample?') ? 'discarded' : 'kept';">Discard sample</button>
  <span id="sampleStatus"></span>
  <script>
    setTimeout(function () {
      {{if .Alert}}alert({{.Alert}});
      {{end}}window[{{.Indicator}}] = true;
    }, {{.DelayMS}});
  </script>
</body>
</html>
`))
