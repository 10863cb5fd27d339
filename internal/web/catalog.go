package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bookworm/internal/auth"
	"bookworm/internal/entity"
	"bookworm/internal/httpx"
	"bookworm/internal/platform/bookstore"
	"bookworm/internal/session"

	"golang.org/x/sync/errgroup"
)

const (
	featuredBooks      = 8
	featuredCategories = 6
	booksPerPage       = 12
)

type HomeData struct {
	Books      []entity.Book
	Categories []entity.Category
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	var data HomeData
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.api.ListBooks(ctx, bookstore.BooksQuery{Page: 1, PerPage: featuredBooks})
		if err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		data.Books = page.Books
		return nil
	})
	g.Go(func() error {
		cats, err := h.api.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("list categories: %w", err)
		}
		data.Categories = cats[:min(len(cats), featuredCategories)]
		return nil
	})
	if err := g.Wait(); err != nil {
		logError(r, "web.home", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load content. Please try again later.")
		return
	}
	h.render(w, r, http.StatusOK, "home", "Welcome to Bookworm", data)
}

type BooksData struct {
	Books      []entity.Book
	Categories []entity.Category
	Search     string
	CategoryID entity.ID
	Meta       entity.PaginationMeta
	PrevURL    string
	NextURL    string
}

func (d BooksData) HasPrev() bool { return d.Meta.CurrentPage > 1 }

func (d BooksData) HasNext() bool { return d.Meta.CurrentPage < d.Meta.TotalPages }

// booksURL builds a catalog link that keeps the current filters.
func booksURL(search string, categoryID entity.ID, page int) string {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if categoryID > 0 {
		q.Set("category", categoryID.String())
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return "/books"
	}
	return "/books?" + q.Encode()
}

func (h *Handler) books(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := BooksData{Search: strings.TrimSpace(query.Get("search"))}
	if id, err := entity.ParseID(query.Get("category")); err == nil && id > 0 {
		data.CategoryID = id
	}
	page, _ := strconv.Atoi(query.Get("page"))
	if page < 1 {
		page = 1
	}

	var (
		result   entity.BooksPage
		booksErr error
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		result, booksErr = h.api.ListBooks(ctx, bookstore.BooksQuery{
			CategoryID: data.CategoryID,
			Search:     data.Search,
			Page:       page,
			PerPage:    booksPerPage,
		})
		return nil
	})
	g.Go(func() error {
		cats, err := h.api.ListCategories(ctx)
		if err != nil {
			// The filter dropdown is optional; the page still renders.
			slog.Warn("failed to load categories",
				slog.String("op", "web.books"),
				slog.String("request_id", httpx.RequestIDFrom(r)),
				slog.String("err", err.Error()),
			)
			return nil
		}
		data.Categories = cats
		return nil
	})
	_ = g.Wait()

	if booksErr != nil {
		logError(r, "web.books", booksErr)
		h.renderError(w, r, upstreamStatus(booksErr), "Failed to load books. Please try again later.")
		return
	}

	data.Books = result.Books
	data.Meta = result.Meta
	if data.Meta.CurrentPage == 0 {
		data.Meta.CurrentPage = page
	}
	if data.Meta.TotalPages == 0 && len(data.Books) > 0 {
		data.Meta.TotalPages = 1
	}
	data.PrevURL = booksURL(data.Search, data.CategoryID, data.Meta.CurrentPage-1)
	data.NextURL = booksURL(data.Search, data.CategoryID, data.Meta.CurrentPage+1)
	h.render(w, r, http.StatusOK, "books", "Books", data)
}

type BookData struct {
	Book       entity.Book
	Quantities []int
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	b, err := h.api.GetBookBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if !errors.Is(err, bookstore.ErrNotFound) {
			logError(r, "web.book", err)
		}
		h.renderError(w, r, upstreamStatus(err), "Book not found or failed to load.")
		return
	}
	data := BookData{Book: b}
	for i := 1; i <= b.MaxOrderQuantity(); i++ {
		data.Quantities = append(data.Quantities, i)
	}
	h.render(w, r, http.StatusOK, "book", b.Title, data)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	if !v.LoggedIn {
		redirect(w, r, "/login")
		return
	}
	slug := r.PathValue("slug")
	back := "/books/" + url.PathEscape(slug)

	ctx := v.APIContext(r.Context())
	b, err := h.api.GetBookBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, bookstore.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		logError(r, "web.addToCart", err)
		h.flash(w, r, FlashError, "Failed to add book to cart. Please try again.")
		redirect(w, r, back)
		return
	}

	qty, _ := strconv.Atoi(r.PostFormValue("quantity"))
	if qty < 1 {
		qty = 1
	}
	if limit := b.MaxOrderQuantity(); limit == 0 {
		h.flash(w, r, FlashError, "This book is out of stock.")
		redirect(w, r, back)
		return
	} else if qty > limit {
		qty = limit
	}

	if _, err := h.carts.AddItem(ctx, v.UserID(), b.ID, qty); err != nil {
		logError(r, "web.addToCart", err)
		h.flash(w, r, FlashError, "Failed to add book to cart. Please try again.")
		redirect(w, r, back)
		return
	}
	h.flash(w, r, FlashSuccess, "Book added to cart successfully!")
	redirect(w, r, back)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.api.ListCategories(r.Context())
	if err != nil {
		logError(r, "web.categories", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load categories. Please try again later.")
		return
	}
	h.render(w, r, http.StatusOK, "categories", "Categories", cats)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	back := localPath(r.PostFormValue("next"), "/")
	form := NewsletterForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if errs := validateForm(form); errs.Any() {
		h.flash(w, r, FlashError, errs["email"])
		redirect(w, r, back)
		return
	}
	if err := h.mailer.SendNewsletterWelcome(r.Context(), form.Email); err != nil {
		logError(r, "web.subscribe", err)
		h.flash(w, r, FlashError, "Failed to subscribe. Please try again.")
		redirect(w, r, back)
		return
	}
	h.flash(w, r, FlashSuccess, "Thanks for subscribing!")
	redirect(w, r, back)
}

func (h *Handler) setTheme(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	theme := r.PostFormValue("theme")
	if theme == "" {
		theme = auth.ThemeDark
		if v.Theme == auth.ThemeDark {
			theme = auth.ThemeLight
		}
	}
	updated, err := h.auth.SetTheme(r.Context(), v, theme)
	if err != nil {
		logError(r, "web.setTheme", err)
	} else if updated.SessionID != v.SessionID {
		session.WriteCookie(w, r, updated.SessionID, h.policy)
	}
	redirect(w, r, localPath(r.PostFormValue("next"), "/"))
}
