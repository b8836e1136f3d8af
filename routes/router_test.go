package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/freemirror/yatube/cache"
	"github.com/freemirror/yatube/config"
	"github.com/freemirror/yatube/forms"
	"github.com/freemirror/yatube/metrics"
	"github.com/freemirror/yatube/models"
	"github.com/freemirror/yatube/services"
	"github.com/freemirror/yatube/storage"
	"github.com/freemirror/yatube/testutil"
)

type testServer struct {
	t      *testing.T
	cfg    config.AppConfig
	db     *gorm.DB
	store  *cache.MemoryStore
	files  *storage.LocalStorage
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testutil.Config(t, t.TempDir())
	cfg.AdminUsernames = []string{"admin"}
	config.Set(cfg)

	db := testutil.OpenDB(t, cfg)
	files, err := storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	require.NoError(t, err)
	store := cache.NewMemoryStore()

	r, err := SetupRouter(Deps{
		Config:  cfg,
		DB:      db,
		Cache:   store,
		Files:   files,
		Metrics: metrics.New(),
	})
	require.NoError(t, err)
	return &testServer{t: t, cfg: cfg, db: db, store: store, files: files, router: r}
}

type request struct {
	method      string
	target      string
	body        io.Reader
	contentType string
	user        *models.User
	cookie      *http.Cookie
	html        bool
}

func (s *testServer) do(r request) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(r.method, r.target, r.body)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.html {
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if r.user != nil {
		req.Header.Set("Authorization", "Bearer "+testutil.Token(s.t, *r.user))
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) get(target string, user *models.User) *httptest.ResponseRecorder {
	return s.do(request{method: http.MethodGet, target: target, user: user})
}

func (s *testServer) postForm(target string, values url.Values, user *models.User) *httptest.ResponseRecorder {
	return s.do(request{
		method:      http.MethodPost,
		target:      target,
		body:        strings.NewReader(values.Encode()),
		contentType: "application/x-www-form-urlencoded",
		user:        user,
	})
}

func (s *testServer) count(model interface{}) int64 {
	s.t.Helper()
	var n int64
	require.NoError(s.t, s.db.Model(model).Count(&n).Error)
	return n
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listBody struct {
	Items      []models.Post       `json:"items"`
	Pagination services.Pagination `json:"pagination"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func postPath(p models.Post, suffix string) string {
	return "/posts/" + strconv.FormatUint(uint64(p.ID), 10) + "/" + suffix
}

func TestAnonymousWritesRedirectToLogin(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	post := testutil.CreatePost(t, s.db, author, nil, "original")

	cases := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/create/"},
		{http.MethodPost, "/create/"},
		{http.MethodGet, postPath(post, "edit/")},
		{http.MethodPost, postPath(post, "edit/")},
		{http.MethodPost, postPath(post, "delete/")},
		{http.MethodPost, postPath(post, "comment/")},
		{http.MethodGet, "/follow/"},
		{http.MethodPost, "/profile/leo/follow/"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := s.do(request{
				method:      tc.method,
				target:      tc.target,
				body:        strings.NewReader(url.Values{"text": {"sneaky"}}.Encode()),
				contentType: "application/x-www-form-urlencoded",
			})
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/auth/login/?next="+tc.target, rec.Header().Get("Location"))
		})
	}

	assert.EqualValues(t, 1, s.count(&models.Post{}))
	assert.Zero(t, s.count(&models.Comment{}))
	assert.Zero(t, s.count(&models.Follow{}))
	var reloaded models.Post
	require.NoError(t, s.db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "original", reloaded.Text)
}

func TestCreatePost_WithGroupAndImage(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	group := testutil.CreateGroup(t, s.db, "Cats", "cats")

	body, contentType := testutil.Multipart(t, map[string]string{
		"text":  "a post with a picture",
		"group": strconv.FormatUint(uint64(group.ID), 10),
	}, "image", "small.gif", testutil.SmallGIF)
	rec := s.do(request{method: http.MethodPost, target: "/create/", body: body, contentType: contentType, user: &author})

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/profile/leo/", rec.Header().Get("Location"))

	var post models.Post
	require.NoError(t, s.db.First(&post).Error)
	assert.Equal(t, "a post with a picture", post.Text)
	assert.Equal(t, author.ID, post.AuthorID)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, group.ID, *post.GroupID)
	assert.Equal(t, "posts/small.gif", post.Image)
	assert.FileExists(t, filepath.Join(s.cfg.MediaRoot, "posts", "small.gif"))

	media := s.get("/media/posts/small.gif", nil)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, testutil.SmallGIF, media.Body.Bytes())

	var page listBody
	decode(t, s.get("/group/cats/", nil), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, post.ID, page.Items[0].ID)
}

func TestCreatePost_Invalid(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")

	rec := s.do(request{
		method:      http.MethodPost,
		target:      "/create/",
		body:        strings.NewReader(url.Values{"text": {"   "}}.Encode()),
		contentType: "application/x-www-form-urlencoded",
		user:        &author,
		html:        true,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), forms.MsgPostTextRequired)

	body, contentType := testutil.Multipart(t, map[string]string{"text": "fine", "group": "999"}, "image", "notes.txt", []byte("plain text"))
	rec = s.do(request{method: http.MethodPost, target: "/create/", body: body, contentType: contentType, user: &author})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var data struct {
		Errors map[string][]string `json:"errors"`
	}
	env := decode(t, rec, &data)
	assert.Equal(t, 40001, env.Code)
	assert.Equal(t, []string{forms.MsgInvalidGroup}, data.Errors["group"])
	assert.Equal(t, []string{forms.MsgInvalidImage}, data.Errors["image"])

	assert.Zero(t, s.count(&models.Post{}))
	entries, err := os.ReadDir(s.cfg.MediaRoot)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestEditPost_OwnerOnly(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	other := testutil.CreateUser(t, s.db, "max")
	post := testutil.CreatePost(t, s.db, author, nil, "original")

	rec := s.do(request{method: http.MethodGet, target: postPath(post, "edit/"), user: &other})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(post, ""), rec.Header().Get("Location"))

	rec = s.postForm(postPath(post, "edit/"), url.Values{"text": {"hijacked"}}, &other)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(post, ""), rec.Header().Get("Location"))
	var reloaded models.Post
	require.NoError(t, s.db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "original", reloaded.Text)

	rec = s.do(request{method: http.MethodGet, target: postPath(post, "edit/"), user: &author, html: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "original")

	rec = s.postForm(postPath(post, "edit/"), url.Values{"text": {"edited"}}, &author)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(post, ""), rec.Header().Get("Location"))
	require.NoError(t, s.db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "edited", reloaded.Text)
	assert.Equal(t, post.CreatedAt.Unix(), reloaded.CreatedAt.Unix())
}

func TestPostText_StoredAsTyped(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")

	rec := s.postForm("/create/", url.Values{"text": {"  Tom & Jerry  "}}, &author)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	var post models.Post
	require.NoError(t, s.db.First(&post).Error)
	assert.Equal(t, "Tom & Jerry", post.Text)

	var data struct {
		Post models.Post `json:"post"`
	}
	decode(t, s.get(postPath(post, ""), nil), &data)
	assert.Equal(t, "Tom & Jerry", data.Post.Text)

	rec = s.do(request{method: http.MethodGet, target: postPath(post, "edit/"), user: &author, html: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "Tom &amp; Jerry"))
	assert.NotContains(t, rec.Body.String(), "&amp;amp;")

	rec = s.do(request{method: http.MethodGet, target: postPath(post, ""), html: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tom &amp; Jerry")
	assert.NotContains(t, rec.Body.String(), "&amp;amp;")

	rec = s.postForm(postPath(post, "comment/"), url.Values{"text": {"<script>x()</script>1 < 2"}}, &author)
	require.Equal(t, http.StatusFound, rec.Code)
	var comment models.Comment
	require.NoError(t, s.db.First(&comment).Error)
	assert.Equal(t, "<script>x()</script>1 < 2", comment.Text)

	rec = s.do(request{method: http.MethodGet, target: postPath(post, ""), html: true})
	assert.NotContains(t, rec.Body.String(), "<script>x()")
	assert.Contains(t, rec.Body.String(), "1 &lt; 2")
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	other := testutil.CreateUser(t, s.db, "max")
	post := testutil.CreatePost(t, s.db, author, nil, "bye")
	testutil.CreateComment(t, s.db, other, post, "nice")

	rec := s.postForm(postPath(post, "delete/"), nil, &other)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(post, ""), rec.Header().Get("Location"))
	assert.EqualValues(t, 1, s.count(&models.Post{}))

	rec = s.postForm(postPath(post, "delete/"), nil, &author)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/leo/", rec.Header().Get("Location"))
	assert.Zero(t, s.count(&models.Post{}))
	assert.Zero(t, s.count(&models.Comment{}))
}

func TestComments(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	reader := testutil.CreateUser(t, s.db, "max")
	post := testutil.CreatePost(t, s.db, author, nil, "discuss")

	rec := s.postForm(postPath(post, "comment/"), url.Values{"text": {"first!"}}, &reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, postPath(post, ""), rec.Header().Get("Location"))

	rec = s.do(request{
		method:      http.MethodPost,
		target:      postPath(post, "comment/"),
		body:        strings.NewReader(url.Values{"text": {"  "}}.Encode()),
		contentType: "application/x-www-form-urlencoded",
		user:        &reader,
		html:        true,
	})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.EqualValues(t, 1, s.count(&models.Comment{}))

	rec = s.postForm("/posts/999/comment/", url.Values{"text": {"lost"}}, &reader)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(request{method: http.MethodGet, target: postPath(post, ""), html: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "first!")
	assert.Contains(t, rec.Body.String(), "discuss")

	var data struct {
		Post            models.Post `json:"post"`
		AuthorPostCount int64       `json:"author_post_count"`
	}
	decode(t, s.get(postPath(post, ""), nil), &data)
	require.Len(t, data.Post.Comments, 1)
	assert.Equal(t, "max", data.Post.Comments[0].Author.Username)
	assert.EqualValues(t, 1, data.AuthorPostCount)
}

func TestIndexCache_StaleUntilCleared(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	admin := testutil.CreateUser(t, s.db, "admin")
	post := testutil.CreatePost(t, s.db, author, nil, "cached text")

	first := s.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Contains(t, first.Body.String(), "cached text")

	require.NoError(t, s.db.Delete(&models.Post{}, post.ID).Error)

	second := s.get("/", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Contains(t, second.Body.String(), "cached text")
	junk := s.get("/?utm_source=x&page=1", nil)
	assert.Equal(t, "HIT", junk.Header().Get("X-Cache"), "unrelated query parameters share the entry")

	rec := s.postForm("/admin/cache/clear/", nil, &author)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, s.get("/", nil).Body.String(), "cached text")

	rec = s.postForm("/admin/cache/clear/", nil, &admin)
	assert.Equal(t, http.StatusOK, rec.Code)

	third := s.get("/", nil)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.NotContains(t, third.Body.String(), "cached text")
}

func TestListings_Paginate(t *testing.T) {
	s := newTestServer(t)
	author := testutil.CreateUser(t, s.db, "leo")
	group := testutil.CreateGroup(t, s.db, "Cats", "cats")
	for i := 0; i < 13; i++ {
		testutil.CreatePost(t, s.db, author, &group, "post "+strconv.Itoa(i))
	}
	testutil.CreatePost(t, s.db, author, nil, "ungrouped")

	var page listBody
	decode(t, s.get("/group/cats/", nil), &page)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, "post 12", page.Items[0].Text)
	assert.True(t, page.Pagination.HasNext)

	decode(t, s.get("/group/cats/?page=2", nil), &page)
	assert.Len(t, page.Items, 3)
	for _, p := range page.Items {
		assert.NotEqual(t, "ungrouped", p.Text)
	}

	decode(t, s.get("/?page=2", nil), &page)
	assert.Len(t, page.Items, 4)
	decode(t, s.get("/?page=abc", nil), &page)
	assert.Equal(t, 1, page.Pagination.Page)
	decode(t, s.get("/?page=99", nil), &page)
	assert.Equal(t, 2, page.Pagination.Page)

	var profile struct {
		Profile services.Profile `json:"profile"`
		Items   []models.Post    `json:"items"`
	}
	decode(t, s.get("/profile/leo/", nil), &profile)
	assert.EqualValues(t, 14, profile.Profile.PostCount)
	assert.Len(t, profile.Items, 10)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{"/group/nope/", "/profile/nobody/", "/posts/999/", "/posts/abc/", "/no/such/page/"} {
		rec := s.get(target, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, 40400, decode(t, rec, nil).Code, target)
	}

	rec := s.do(request{method: http.MethodGet, target: "/no/such/page/", html: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found")
}

func TestFollowFeed(t *testing.T) {
	s := newTestServer(t)
	reader := testutil.CreateUser(t, s.db, "reader")
	stranger := testutil.CreateUser(t, s.db, "stranger")
	author := testutil.CreateUser(t, s.db, "author")
	testutil.CreatePost(t, s.db, author, nil, "followed post")

	rec := s.postForm("/profile/author/follow/", nil, &reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get("Location"))
	assert.EqualValues(t, 1, s.count(&models.Follow{}))

	s.postForm("/profile/author/follow/", nil, &reader)
	assert.EqualValues(t, 1, s.count(&models.Follow{}))

	var page listBody
	decode(t, s.get("/follow/", &reader), &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "followed post", page.Items[0].Text)

	decode(t, s.get("/follow/", &stranger), &page)
	assert.Empty(t, page.Items)

	var profile struct {
		Profile services.Profile `json:"profile"`
	}
	decode(t, s.get("/profile/author/", &reader), &profile)
	assert.True(t, profile.Profile.Following)
	assert.EqualValues(t, 1, profile.Profile.Followers)

	rec = s.postForm("/profile/author/unfollow/", nil, &reader)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, s.count(&models.Follow{}))
	decode(t, s.get("/follow/", &reader), &page)
	assert.Empty(t, page.Items)

	rec = s.postForm("/profile/nobody/follow/", nil, &reader)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignupLoginLogout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(request{
		method:      http.MethodPost,
		target:      "/auth/signup/",
		body:        strings.NewReader(url.Values{"username": {"newbie"}, "email": {"newbie@example.com"}, "password": {"secret1"}, "confirm": {"secret1"}}.Encode()),
		contentType: "application/x-www-form-urlencoded",
		html:        true,
	})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.EqualValues(t, 1, s.count(&models.User{}))

	rec = s.do(request{
		method:      http.MethodPost,
		target:      "/auth/login/",
		body:        strings.NewReader(url.Values{"username": {"newbie"}, "password": {"wrong1"}}.Encode()),
		contentType: "application/x-www-form-urlencoded",
		html:        true,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "please enter a correct username and password")

	rec = s.do(request{
		method:      http.MethodPost,
		target:      "/auth/login/",
		body:        strings.NewReader(url.Values{"username": {"newbie"}, "password": {"secret1"}, "next": {"/create/"}}.Encode()),
		contentType: "application/x-www-form-urlencoded",
		html:        true,
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	rec = s.do(request{method: http.MethodGet, target: "/create/", cookie: session, html: true})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(request{method: http.MethodPost, target: "/auth/logout/", cookie: session, html: true})
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = s.do(request{method: http.MethodGet, target: "/create/", cookie: session})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next=/create/", rec.Header().Get("Location"))
}

func TestLogin_RejectsOffsiteNext(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, "leo")

	rec := s.do(request{
		method:      http.MethodPost,
		target:      "/auth/login/",
		body:        strings.NewReader(url.Values{"username": {"leo"}, "password": {"password"}, "next": {"//evil.example.com/"}}.Encode()),
		contentType: "application/x-www-form-urlencoded",
		html:        true,
	})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.get("/", nil)
	rec = s.get("/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `yatube_page_cache_lookups_total{page="index",result="miss"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/"`)
}
