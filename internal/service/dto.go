package service

import (
	"github.com/samber/lo"

	"library/internal/types"
)

type GenreDTO struct {
	Id   int64  `json:"id"`
	Name string `json:"name"`
}

type BookDTO struct {
	Id         int64       `json:"id"`
	Title      string      `json:"title"`
	Genre      GenreDTO    `json:"genre"`
	AuthorList []AuthorDTO `json:"authorList"`
}

type AuthorDTO struct {
	Id       int64     `json:"id"`
	Name     string    `json:"name"`
	Surname  string    `json:"surname"`
	BookList []BookDTO `json:"bookList"`
}

func GenreFromCommon(g types.Genre) GenreDTO {
	return GenreDTO{Id: g.Id, Name: g.Name}
}

func (d GenreDTO) IntoCommon() types.Genre {
	return types.Genre{Id: d.Id, Name: d.Name}
}

// BookFromCommon converts a book with its authors. Lists are never nil so they
// encode as [] rather than null.
func BookFromCommon(b types.Book) BookDTO {
	return BookDTO{
		Id:    b.Id,
		Title: b.Title,
		Genre: GenreFromCommon(b.Genre),
		AuthorList: lo.Map(b.Authors, func(a types.Author, _ int) AuthorDTO {
			return AuthorDTO{Id: a.Id, Name: a.Name, Surname: a.Surname, BookList: []BookDTO{}}
		}),
	}
}

func (d BookDTO) IntoCommon() types.Book {
	return types.Book{
		Id:    d.Id,
		Title: d.Title,
		Genre: d.Genre.IntoCommon(),
		Authors: lo.Map(d.AuthorList, func(a AuthorDTO, _ int) types.Author {
			return types.Author{Id: a.Id, Name: a.Name, Surname: a.Surname}
		}),
	}
}

func AuthorFromCommon(a types.Author) AuthorDTO {
	return AuthorDTO{
		Id:      a.Id,
		Name:    a.Name,
		Surname: a.Surname,
		BookList: lo.Map(a.Books, func(b types.Book, _ int) BookDTO {
			return BookDTO{Id: b.Id, Title: b.Title, Genre: GenreFromCommon(b.Genre), AuthorList: []AuthorDTO{}}
		}),
	}
}

func (d AuthorDTO) IntoCommon() types.Author {
	return types.Author{
		Id:      d.Id,
		Name:    d.Name,
		Surname: d.Surname,
		Books: lo.Map(d.BookList, func(b BookDTO, _ int) types.Book {
			return types.Book{Id: b.Id, Title: b.Title, Genre: b.Genre.IntoCommon()}
		}),
	}
}
