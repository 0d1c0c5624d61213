package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Province{}, &Post{}, &Comment{}, &PageView{}}
}
