package types

import "time"

// AppType is the kind of application the user asks for. Values are the form labels.
type AppType string

const (
	AppTypeWeb     AppType = "Web App"
	AppTypeMobile  AppType = "Mobile App"
	AppTypeDesktop AppType = "Desktop App"
)

// Framework is the target framework or platform.
type Framework string

const (
	FrameworkReact   Framework = "React"
	FrameworkNextJS  Framework = "Next.js"
	FrameworkVue     Framework = "Vue"
	FrameworkFlutter Framework = "Flutter"
)

// AppTypes lists the accepted app types in form order.
var AppTypes = []AppType{AppTypeWeb, AppTypeMobile, AppTypeDesktop}

// Frameworks lists the accepted frameworks in form order.
var Frameworks = []Framework{FrameworkReact, FrameworkNextJS, FrameworkVue, FrameworkFlutter}

// Valid reports whether a is one of AppTypes.
func (a AppType) Valid() bool {
	for _, v := range AppTypes {
		if v == a {
			return true
		}
	}
	return false
}

// Valid reports whether f is one of Frameworks.
func (f Framework) Valid() bool {
	for _, v := range Frameworks {
		if v == f {
			return true
		}
	}
	return false
}

// GeneratedAppRecord is the document written once per successful generation.
type GeneratedAppRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Prompt    string    `json:"prompt"`
	AppType   string    `json:"appType"`
	Framework string    `json:"framework"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
