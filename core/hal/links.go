package hal

import "strings"

const selfRel = "self"

type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated,omitempty"`
}

// Links is the `_links` object of a HAL resource.
type Links map[string]Link

// Href returns the un-templated href of the `rel` relation.
func (l Links) Href(rel string) (string, bool) {
	link, ok := l[rel]
	if !ok || link.Href == "" {
		return "", false
	}
	href := link.Href
	if i := strings.Index(href, "{"); i >= 0 {
		href = href[:i] // drop "{?projection}"
	}
	return href, true
}

func (l Links) Self() string {
	href, _ := l.Href(selfRel)
	return href
}

// Resource is any HAL resource exposing its links.
type Resource interface {
	HALLinks() Links
}

// SelfHrefs collects the self hrefs of `resources`, skipping those without one.
func SelfHrefs(resources ...Resource) []string {
	hrefs := make([]string, 0, len(resources))
	for _, res := range resources {
		if self := res.HALLinks().Self(); self != "" {
			hrefs = append(hrefs, self)
		}
	}
	return hrefs
}
