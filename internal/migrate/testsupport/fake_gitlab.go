package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

const (
	projectsPathConstant       = "/api/v4/projects"
	apiPathSuffixConstant      = "/api/v4"
	privateTokenHeaderConstant = "PRIVATE-TOKEN"
	totalPagesHeaderConstant   = "X-Total-Pages"
	currentPageHeaderConstant  = "X-Page"
	nextPageHeaderConstant     = "X-Next-Page"
	pageQueryKeyConstant       = "page"
	perPageQueryKeyConstant    = "per_page"
	defaultPerPageConstant     = 20
	contentTypeHeaderConstant  = "Content-Type"
	jsonContentTypeConstant    = "application/json"
)

// FakeProject is a project served by FakeGitLab.
type FakeProject struct {
	Name          string `json:"name"`
	HTTPCloneURL  string `json:"http_url_to_repo"`
	DefaultBranch string `json:"default_branch"`
	Archived      bool   `json:"archived"`
	Description   string `json:"description"`
}

// FakeGitLab serves /api/v4/projects with X-Page and X-Total-Pages pagination.
type FakeGitLab struct {
	Projects []FakeProject

	mutex          sync.Mutex
	receivedTokens []string
	server         *httptest.Server
}

// NewFakeGitLab starts a server for the projects.
func NewFakeGitLab(projects []FakeProject) *FakeGitLab {
	fake := &FakeGitLab{Projects: projects}
	fake.server = httptest.NewServer(http.HandlerFunc(fake.serve))
	return fake
}

// APIURL returns the v4 API base URL.
func (fake *FakeGitLab) APIURL() string {
	return fake.server.URL + apiPathSuffixConstant
}

// Close stops the server.
func (fake *FakeGitLab) Close() {
	fake.server.Close()
}

// ReceivedTokens returns the PRIVATE-TOKEN values seen so far.
func (fake *FakeGitLab) ReceivedTokens() []string {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]string{}, fake.receivedTokens...)
}

func (fake *FakeGitLab) serve(responseWriter http.ResponseWriter, request *http.Request) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.receivedTokens = append(fake.receivedTokens, request.Header.Get(privateTokenHeaderConstant))

	if request.URL.Path != projectsPathConstant {
		http.NotFound(responseWriter, request)
		return
	}

	pageNumber, _ := strconv.Atoi(request.URL.Query().Get(pageQueryKeyConstant))
	if pageNumber < 1 {
		pageNumber = 1
	}
	perPage, _ := strconv.Atoi(request.URL.Query().Get(perPageQueryKeyConstant))
	if perPage < 1 {
		perPage = defaultPerPageConstant
	}
	totalPages := (len(fake.Projects) + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	page := []FakeProject{}
	for index := (pageNumber - 1) * perPage; index < len(fake.Projects) && index < pageNumber*perPage; index++ {
		page = append(page, fake.Projects[index])
	}

	responseWriter.Header().Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	responseWriter.Header().Set(totalPagesHeaderConstant, strconv.Itoa(totalPages))
	responseWriter.Header().Set(currentPageHeaderConstant, strconv.Itoa(pageNumber))
	if pageNumber < totalPages {
		responseWriter.Header().Set(nextPageHeaderConstant, strconv.Itoa(pageNumber+1))
	} else {
		responseWriter.Header().Set(nextPageHeaderConstant, "")
	}
	responseWriter.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(responseWriter).Encode(page)
}
