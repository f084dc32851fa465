//go:build !no_automation

package automation

// ScriptMeta holds user-editable metadata for a script.
type ScriptMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Script is a single automation script stored on disk as <id>.lua. The
// first line of the file carries the metadata as a JSON comment.
type Script struct {
	ID       string     `json:"id"` // filename stem (no .lua)
	Meta     ScriptMeta `json:"meta"`
	LuaCode  string     `json:"lua_code"` // raw Lua source (without header)
	FilePath string     `json:"-"`
}
