package types

type Genre struct {
	Id   int64
	Name string
}

type Book struct {
	Id      int64
	Title   string
	Genre   Genre
	Authors []Author
}

type Author struct {
	Id      int64
	Name    string
	Surname string
	Books   []Book
}

// SameGenre compares genres by name. Ids are not part of the comparison.
func SameGenre(a, b Genre) bool {
	return a.Name == b.Name
}

// SameBook compares books by title and genre name.
func SameBook(a, b Book) bool {
	return a.Title == b.Title && SameGenre(a.Genre, b.Genre)
}

// SameAuthor compares authors by name and surname.
func SameAuthor(a, b Author) bool {
	return a.Name == b.Name && a.Surname == b.Surname
}

// FullName joins name and surname the way they are shown in feeds and logs.
func (a *Author) FullName() string {
	if a.Surname == "" {
		return a.Name
	}
	if a.Name == "" {
		return a.Surname
	}

	return a.Name + " " + a.Surname
}
