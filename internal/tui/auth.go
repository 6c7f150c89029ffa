package tui

import (
	"errors"

	"github.com/rivo/tview"

	"github.com/pairchat/pairchat/internal/session"
)

// AuthView hosts the login and signup forms. It talks to the session
// provider directly and reports the outcome through callbacks.
type AuthView struct {
	*tview.Pages
	provider *session.Provider

	onLoggedIn func(u *session.User)
	onNotice   func(msg string)

	loginForm  *tview.Form
	signupForm *tview.Form
}

// NewAuthView creates the auth page with both forms.
func NewAuthView(provider *session.Provider) *AuthView {
	v := &AuthView{
		Pages:    tview.NewPages(),
		provider: provider,
	}
	v.loginForm = v.buildLoginForm()
	v.signupForm = v.buildSignupForm()
	v.AddPage("login", center(v.loginForm, 50, 11), true, true)
	v.AddPage("signup", center(v.signupForm, 50, 15), true, false)
	return v
}

// SetOnLoggedIn registers the callback for a successful login.
func (v *AuthView) SetOnLoggedIn(fn func(u *session.User)) {
	v.onLoggedIn = fn
}

// SetOnNotice registers the callback for user-facing notices.
func (v *AuthView) SetOnNotice(fn func(msg string)) {
	v.onNotice = fn
}

func (v *AuthView) notice(msg string) {
	if v.onNotice != nil {
		v.onNotice(msg)
	}
}

func (v *AuthView) buildLoginForm() *tview.Form {
	form := tview.NewForm().
		AddInputField("Email or mobile", "", 30, nil, nil).
		AddPasswordField("Password", "", 30, '*', nil)
	form.AddButton("Login", func() {
		identity := form.GetFormItem(0).(*tview.InputField).GetText()
		password := form.GetFormItem(1).(*tview.InputField).GetText()

		u, err := v.provider.Login(identity, password)
		if err != nil {
			if errors.Is(err, session.ErrInvalidCredentials) {
				v.notice("Invalid credentials")
			} else {
				v.notice("Login failed: " + err.Error())
			}
			return
		}
		form.GetFormItem(1).(*tview.InputField).SetText("")
		if v.onLoggedIn != nil {
			v.onLoggedIn(u)
		}
	})
	form.AddButton("Sign up", func() {
		v.SwitchToPage("signup")
	})
	form.SetBorder(true).SetTitle(" Login ")
	return form
}

func (v *AuthView) buildSignupForm() *tview.Form {
	form := tview.NewForm().
		AddInputField("Name", "", 30, nil, nil).
		AddInputField("Email", "", 30, nil, nil).
		AddInputField("Mobile", "", 30, nil, nil).
		AddPasswordField("Password", "", 30, '*', nil)
	form.AddButton("Create account", func() {
		name := form.GetFormItem(0).(*tview.InputField).GetText()
		email := form.GetFormItem(1).(*tview.InputField).GetText()
		mobile := form.GetFormItem(2).(*tview.InputField).GetText()
		password := form.GetFormItem(3).(*tview.InputField).GetText()

		if err := v.provider.Signup(name, email, mobile, password); err != nil {
			v.notice("Signup failed: " + err.Error())
			return
		}
		v.notice("Account created, please log in")
		for i := 0; i < 4; i++ {
			form.GetFormItem(i).(*tview.InputField).SetText("")
		}
		v.SwitchToPage("login")
	})
	form.AddButton("Back", func() {
		v.SwitchToPage("login")
	})
	form.SetBorder(true).SetTitle(" Sign up ")
	return form
}

// center wraps a primitive in a flex so it floats with a fixed size.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
