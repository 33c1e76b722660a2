package web

import (
	"github.com/goserg/memberportal/auth/users"
	"github.com/goserg/memberportal/internal/web/webpath"
)

// page is what every view renders from. Errors are shown by the "errors"
// partial above a form.
type page struct {
	Title  string
	Path   map[string]string
	User   users.Identity
	Errors []string
	Data   map[string]any
}

func newPage(title string, user users.Identity) page {
	return page{
		Title: title,
		Path:  webpath.Path(),
		User:  user,
		Data:  make(map[string]any),
	}
}

func (p page) With(key string, value any) page {
	data := make(map[string]any, len(p.Data)+1)
	for k, v := range p.Data {
		data[k] = v
	}
	data[key] = value
	p.Data = data
	return p
}

func (p page) WithErrors(messages ...string) page {
	p.Errors = append(p.Errors[:len(p.Errors):len(p.Errors)], messages...)
	return p
}
