package entity

// UserAuth is an API caller: a chat automation layer or an operator.
type UserAuth struct {
	Username string `json:"username" bson:"username" validate:"required"`
	Token    string `json:"-" bson:"key" validate:"required,min=1"`
}
