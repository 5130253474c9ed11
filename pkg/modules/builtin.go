package modules

import (
	"bytes"
	"os"
	"strings"
	"text/template"

	"github.com/forgedeploy/forge/pkg/exec"
	"github.com/forgedeploy/forge/pkg/fs"
)

func str(args map[string]interface{}, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// commandModule runs a command directly (shell=false) or through a shell
// (shell=true), grounded on pkg/exec's Cmd/Cmder abstraction so tests can
// substitute a fake Cmder the same way pkg/capability does.
type commandModule struct{ shell bool }

func (m commandModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "cmd") == "" {
		return &DispatchError{Kind: "missing-required", Module: "command", Detail: "cmd"}
	}
	return nil
}

func (m commandModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	return Result{Changed: true, Message: "would run: " + str(args, "cmd")}, nil
}

func (m commandModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	cmdline := str(args, "cmd")
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}

	var name string
	var cmdArgs []string
	if m.shell {
		name, cmdArgs = "/bin/sh", []string{"-c", cmdline}
	} else {
		fields := strings.Fields(cmdline)
		if len(fields) == 0 {
			return Result{Failed: true, Message: "empty command"}, nil
		}
		name, cmdArgs = fields[0], fields[1:]
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, cmdArgs...)
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)
	if len(ctx.Env) > 0 {
		cmd.SetEnv(ctx.Env...)
	}
	var err error
	if ctx.Ctx != nil {
		err = exec.RunContext(ctx.Ctx, cmd)
	} else {
		err = cmd.Run()
	}
	res := Result{
		Changed: true,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		res.Failed = true
		res.Message = err.Error()
		res.RC = 1
	}
	return res, nil
}

// packageModule installs or removes a package by running the host
// package manager (`<manager> install|remove -y <name>`). The manager is
// taken from the `pkg_manager` fact (set by the runtime's setup module
// before this one dispatches) and is apt-get when that fact is absent.
type packageModule struct{}

func (packageModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "name") == "" {
		return &DispatchError{Kind: "missing-required", Module: "package", Detail: "name"}
	}
	return nil
}

func (m packageModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true}, err
	}
	return Result{Changed: true, Message: "would ensure " + str(args, "name") + " is " + str(args, "state")}, nil
}

func (m packageModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	mgr, _ := ctx.Facts["pkg_manager"].(string)
	if mgr == "" {
		mgr = "apt-get"
	}
	state := str(args, "state")
	verb := "install"
	if state == "absent" {
		verb = "remove"
	}
	cmd := exec.Command(mgr, verb, "-y", str(args, "name"))
	var stdout, stderr bytes.Buffer
	cmd.SetStdout(&stdout)
	cmd.SetStderr(&stderr)
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	err := cmd.Run()
	res := Result{Changed: true, Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.Failed = true
		res.Message = err.Error()
	}
	return res, nil
}

type serviceModule struct{}

func (serviceModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "name") == "" {
		return &DispatchError{Kind: "missing-required", Module: "service", Detail: "name"}
	}
	return nil
}
func (m serviceModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would set " + str(args, "name") + " state to " + str(args, "state")}, nil
}
func (m serviceModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	action := "restart"
	switch str(args, "state") {
	case "started":
		action = "start"
	case "stopped":
		action = "stop"
	case "restarted":
		action = "restart"
	}
	cmd := exec.Command("systemctl", action, str(args, "name"))
	err := cmd.Run()
	res := Result{Changed: true}
	if err != nil {
		res.Failed = true
		res.Message = err.Error()
	}
	return res, nil
}

type debugModule struct{}

func (debugModule) ValidateArgs(args map[string]interface{}) error { return nil }
func (debugModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return debugModule{}.Invoke(args, ctx)
}
func (debugModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if v := str(args, "var"); v != "" {
		val, _ := ctx.Variables[v]
		return Result{Message: v, Data: map[string]interface{}{v: val}}, nil
	}
	return Result{Message: str(args, "msg")}, nil
}

type fileModule struct{}

func (fileModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "path") == "" {
		return &DispatchError{Kind: "missing-required", Module: "file", Detail: "path"}
	}
	return nil
}
func (m fileModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would set state of " + str(args, "path")}, nil
}
func (m fileModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	path := str(args, "path")
	state := str(args, "state")
	switch state {
	case "absent":
		if err := os.RemoveAll(path); err != nil {
			return Result{Failed: true, Message: err.Error()}, nil
		}
		return Result{Changed: true}, nil
	case "directory":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return Result{Failed: true, Message: err.Error()}, nil
		}
		return Result{Changed: true}, nil
	case "touch":
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return Result{Failed: true, Message: err.Error()}, nil
		}
		f.Close()
		return Result{Changed: true}, nil
	default:
		_, err := os.Stat(path)
		return Result{Changed: false, Failed: err != nil}, nil
	}
}

type copyModule struct{}

func (copyModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "src") == "" || str(args, "dest") == "" {
		return &DispatchError{Kind: "missing-required", Module: "copy", Detail: "src, dest"}
	}
	return nil
}
func (m copyModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would copy " + str(args, "src") + " to " + str(args, "dest")}, nil
}
func (m copyModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	if err := fs.Copy(str(args, "src"), str(args, "dest")); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}

// templateModule renders src as a text/template against ctx.Variables
// and writes the result to dest; a real deployment would reuse the
// synthesizer's static-file embedding for src's contents.
type templateModule struct{}

func (templateModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "src") == "" || str(args, "dest") == "" {
		return &DispatchError{Kind: "missing-required", Module: "template", Detail: "src, dest"}
	}
	return nil
}
func (m templateModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would render " + str(args, "src")}, nil
}
func (m templateModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	data, err := os.ReadFile(str(args, "src"))
	if err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	tmpl, err := template.New(str(args, "src")).Parse(string(data))
	if err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, ctx.Variables); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	if err := os.WriteFile(str(args, "dest"), rendered.Bytes(), 0o644); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}

type statModule struct{}

func (statModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "path") == "" {
		return &DispatchError{Kind: "missing-required", Module: "stat", Detail: "path"}
	}
	return nil
}
func (m statModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return m.Invoke(args, ctx)
}
func (m statModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	info, err := os.Stat(str(args, "path"))
	if err != nil {
		return Result{Data: map[string]interface{}{"exists": false}}, nil
	}
	return Result{Data: map[string]interface{}{
		"exists": true, "size": info.Size(), "is_dir": info.IsDir(), "mode": info.Mode().String(),
	}}, nil
}

type getURLModule struct{}

func (getURLModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "url") == "" || str(args, "dest") == "" {
		return &DispatchError{Kind: "missing-required", Module: "get_url", Detail: "url, dest"}
	}
	return nil
}
func (m getURLModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would fetch " + str(args, "url")}, nil
}
func (m getURLModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	cmd := exec.Command("curl", "-fsSL", "-o", str(args, "dest"), str(args, "url"))
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}

type uriModule struct{}

func (uriModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "url") == "" {
		return &DispatchError{Kind: "missing-required", Module: "uri", Detail: "url"}
	}
	return nil
}
func (m uriModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Message: "would " + str(args, "method") + " " + str(args, "url")}, nil
}
func (m uriModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	method := str(args, "method")
	if method == "" {
		method = "GET"
	}
	cmd := exec.Command("curl", "-fsS", "-X", method, str(args, "url"))
	var stdout bytes.Buffer
	cmd.SetStdout(&stdout)
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Data: map[string]interface{}{"body": stdout.String()}}, nil
}

type gitModule struct{}

func (gitModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "repo") == "" || str(args, "dest") == "" {
		return &DispatchError{Kind: "missing-required", Module: "git", Detail: "repo, dest"}
	}
	return nil
}
func (m gitModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would clone " + str(args, "repo")}, nil
}
func (m gitModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	dest := str(args, "dest")
	var cmd exec.Cmd
	if _, err := os.Stat(dest); err == nil {
		cmd = exec.Command("git", "-C", dest, "pull")
	} else {
		cmd = exec.Command("git", "clone", str(args, "repo"), dest)
	}
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	if v := str(args, "version"); v != "" {
		if err := exec.Command("git", "-C", dest, "checkout", v).Run(); err != nil {
			return Result{Failed: true, Message: err.Error()}, nil
		}
	}
	return Result{Changed: true}, nil
}

type unarchiveModule struct{}

func (unarchiveModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "src") == "" || str(args, "dest") == "" {
		return &DispatchError{Kind: "missing-required", Module: "unarchive", Detail: "src, dest"}
	}
	return nil
}
func (m unarchiveModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would extract " + str(args, "src")}, nil
}
func (m unarchiveModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	if err := os.MkdirAll(str(args, "dest"), 0o755); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	cmd := exec.Command("tar", "-xf", str(args, "src"), "-C", str(args, "dest"))
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}

type archiveModule struct{}

func (archiveModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "path") == "" || str(args, "dest") == "" {
		return &DispatchError{Kind: "missing-required", Module: "archive", Detail: "path, dest"}
	}
	return nil
}
func (m archiveModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would archive " + str(args, "path")}, nil
}
func (m archiveModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	cmd := exec.Command("tar", "-czf", str(args, "dest"), str(args, "path"))
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}

// setupModule gathers facts (the minimum the strategist/package modules
// rely on) rather than the full inventory a real fact-gathering module
// would collect.
type setupModule struct{}

func (setupModule) ValidateArgs(args map[string]interface{}) error { return nil }
func (m setupModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return m.Invoke(args, ctx)
}
func (setupModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	facts := map[string]interface{}{
		"os": osFact(),
	}
	if _, err := os.Stat("/usr/bin/apt-get"); err == nil {
		facts["pkg_manager"] = "apt-get"
	} else if _, err := os.Stat("/usr/bin/yum"); err == nil {
		facts["pkg_manager"] = "yum"
	}
	return Result{Facts: facts}, nil
}

func osFact() string {
	data, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return "unknown"
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ID=") {
			return strings.Trim(strings.TrimPrefix(line, "ID="), "\"")
		}
	}
	return "unknown"
}

type userModule struct{}

func (userModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "name") == "" {
		return &DispatchError{Kind: "missing-required", Module: "user", Detail: "name"}
	}
	return nil
}
func (m userModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would set user " + str(args, "name") + " to " + str(args, "state")}, nil
}
func (m userModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	var cmd exec.Cmd
	if str(args, "state") == "absent" {
		cmd = exec.Command("userdel", str(args, "name"))
	} else {
		cmd = exec.Command("useradd", str(args, "name"))
	}
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}

type groupModule struct{}

func (groupModule) ValidateArgs(args map[string]interface{}) error {
	if str(args, "name") == "" {
		return &DispatchError{Kind: "missing-required", Module: "group", Detail: "name"}
	}
	return nil
}
func (m groupModule) CheckMode(args map[string]interface{}, ctx Context) (Result, error) {
	return Result{Changed: true, Message: "would set group " + str(args, "name") + " to " + str(args, "state")}, nil
}
func (m groupModule) Invoke(args map[string]interface{}, ctx Context) (Result, error) {
	if err := m.ValidateArgs(args); err != nil {
		return Result{Failed: true, Message: err.Error()}, err
	}
	if ctx.CheckMode {
		return m.CheckMode(args, ctx)
	}
	var cmd exec.Cmd
	if str(args, "state") == "absent" {
		cmd = exec.Command("groupdel", str(args, "name"))
	} else {
		cmd = exec.Command("groupadd", str(args, "name"))
	}
	if err := cmd.Run(); err != nil {
		return Result{Failed: true, Message: err.Error()}, nil
	}
	return Result{Changed: true}, nil
}
