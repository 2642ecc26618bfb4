package config

import (
	"sort"

	"github.com/amitbet/irbridge/ircode"
)

// Remote groups the commands of one category.
type Remote struct {
	Name     string                      `json:"name"`
	Commands map[string]ircode.IRCommand `json:"commands"`
}

type RemoteList []*Remote

func NewRemote(name string) *Remote {
	return &Remote{
		Name:     name,
		Commands: make(map[string]ircode.IRCommand),
	}
}

func (r *Remote) CommandNames() []string {
	out := make([]string, 0, len(r.Commands))
	for k := range r.Commands {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Remotes builds the catalogue from the configured commands, sorted by name.
// When a category repeats a command name the first entry wins, as in GetCommandByNameAndCategory.
func (c *Config) Remotes() RemoteList {
	var rl RemoteList
	for _, cmd := range c.Commands {
		r := rl.Find(cmd.Category)
		if r == nil {
			r = NewRemote(cmd.Category)
			rl = append(rl, r)
		}
		if _, ok := r.Commands[cmd.Name]; ok {
			continue
		}
		code, err := cmd.GetBytesToSend()
		if err != nil {
			continue
		}
		r.Commands[cmd.Name] = code
	}
	sort.Slice(rl, func(i, j int) bool { return rl[i].Name < rl[j].Name })
	return rl
}

func (rl RemoteList) Find(remoteName string) *Remote {
	for _, r := range rl {
		if r.Name == remoteName {
			return r
		}
	}
	return nil
}

func (rl RemoteList) Names() []string {
	out := make([]string, len(rl))
	for idx, r := range rl {
		out[idx] = r.Name
	}
	return out
}
