package model

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// UserView is the public representation returned from signup.
type UserView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (u User) View() UserView {
	return UserView{ID: u.ID, Email: u.Email}
}
