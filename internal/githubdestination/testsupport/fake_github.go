// Package testsupport provides an in-memory GitHub REST API for exercising the destination manager
// and the migration workflow over real HTTP.
package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	orgsPathSegmentConstant     = "orgs"
	reposPathSegmentConstant    = "repos"
	branchesPathSegmentConstant = "branches"
	renamePathSegmentConstant   = "rename"
	pageQueryKeyConstant        = "page"
	perPageQueryKeyConstant     = "per_page"
	defaultPerPageConstant      = 30
	contentTypeHeaderConstant   = "Content-Type"
	jsonContentTypeConstant     = "application/json"
)

// FakeRepository is the server-side state of one repository.
type FakeRepository struct {
	Name          string
	Description   string
	Private       bool
	HasIssues     bool
	HasWiki       bool
	HasProjects   bool
	DefaultBranch string
	Branches      []string
}

// RecordedRequest is a method and path pair observed by the server.
type RecordedRequest struct {
	Method string
	Path   string
}

type repositoryState struct {
	repository        FakeRepository
	visibleDefault    string
	remainingLagReads int
}

// FakeGitHub serves the subset of the GitHub REST API used by the migration.
//
// Default branch updates become visible only after PropagationReads further reads, imitating
// GitHub's eventual consistency.
type FakeGitHub struct {
	Organization     string
	PropagationReads int
	CreateStatus     int
	RenameStatus     int

	mutex        sync.Mutex
	repositories map[string]*repositoryState
	requests     []RecordedRequest
	server       *httptest.Server
}

// NewFakeGitHub starts a server for the organization.
func NewFakeGitHub(organization string) *FakeGitHub {
	fake := &FakeGitHub{Organization: organization, repositories: map[string]*repositoryState{}}
	fake.server = httptest.NewServer(http.HandlerFunc(fake.serve))
	return fake
}

// URL returns the API base URL.
func (fake *FakeGitHub) URL() string {
	return fake.server.URL + "/"
}

// Close stops the server.
func (fake *FakeGitHub) Close() {
	fake.server.Close()
}

// AddRepository seeds an existing repository.
func (fake *FakeGitHub) AddRepository(repository FakeRepository) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	fake.repositories[repository.Name] = &repositoryState{repository: repository, visibleDefault: repository.DefaultBranch}
}

// PushBranches records branches arriving through a mirror push. An empty repository adopts the
// provided default branch.
func (fake *FakeGitHub) PushBranches(repositoryName string, branches []string, defaultBranch string) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	state, exists := fake.repositories[repositoryName]
	if !exists {
		return
	}
	for _, branch := range branches {
		if !containsBranch(state.repository.Branches, branch) {
			state.repository.Branches = append(state.repository.Branches, branch)
		}
	}
	if len(state.repository.DefaultBranch) == 0 {
		state.repository.DefaultBranch = defaultBranch
		state.visibleDefault = defaultBranch
	}
}

// Repository returns a copy of the repository state.
func (fake *FakeGitHub) Repository(repositoryName string) (FakeRepository, bool) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	state, exists := fake.repositories[repositoryName]
	if !exists {
		return FakeRepository{}, false
	}
	copied := state.repository
	copied.Branches = append([]string{}, state.repository.Branches...)
	sort.Strings(copied.Branches)
	return copied, true
}

// Requests returns the observed requests in order.
func (fake *FakeGitHub) Requests() []RecordedRequest {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()
	return append([]RecordedRequest{}, fake.requests...)
}

// CountRequests counts observed requests with the method whose path has the prefix.
func (fake *FakeGitHub) CountRequests(method string, pathPrefix string) int {
	count := 0
	for _, request := range fake.Requests() {
		if request.Method == method && strings.HasPrefix(request.Path, pathPrefix) {
			count++
		}
	}
	return count
}

func (fake *FakeGitHub) serve(responseWriter http.ResponseWriter, request *http.Request) {
	fake.mutex.Lock()
	defer fake.mutex.Unlock()

	fake.requests = append(fake.requests, RecordedRequest{Method: request.Method, Path: request.URL.Path})
	segments := strings.Split(strings.Trim(request.URL.Path, "/"), "/")
	if len(segments) < 3 || segments[1] != fake.Organization {
		writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}

	switch {
	case len(segments) == 3 && segments[0] == orgsPathSegmentConstant && segments[2] == reposPathSegmentConstant && request.Method == http.MethodGet:
		fake.listRepositories(responseWriter, request)
	case len(segments) == 3 && segments[0] == orgsPathSegmentConstant && segments[2] == reposPathSegmentConstant && request.Method == http.MethodPost:
		fake.createRepository(responseWriter, request)
	case len(segments) == 3 && segments[0] == reposPathSegmentConstant && request.Method == http.MethodGet:
		fake.getRepository(responseWriter, segments[2])
	case len(segments) == 3 && segments[0] == reposPathSegmentConstant && request.Method == http.MethodPatch:
		fake.editRepository(responseWriter, request, segments[2])
	case len(segments) == 6 && segments[0] == reposPathSegmentConstant && segments[3] == branchesPathSegmentConstant && segments[5] == renamePathSegmentConstant:
		fake.renameBranch(responseWriter, request, segments[2], segments[4])
	default:
		writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
}

func (fake *FakeGitHub) listRepositories(responseWriter http.ResponseWriter, request *http.Request) {
	pageNumber, _ := strconv.Atoi(request.URL.Query().Get(pageQueryKeyConstant))
	if pageNumber < 1 {
		pageNumber = 1
	}
	perPage, _ := strconv.Atoi(request.URL.Query().Get(perPageQueryKeyConstant))
	if perPage < 1 {
		perPage = defaultPerPageConstant
	}

	names := make([]string, 0, len(fake.repositories))
	for name := range fake.repositories {
		names = append(names, name)
	}
	sort.Strings(names)

	page := []map[string]any{}
	for index := (pageNumber - 1) * perPage; index < len(names) && index < pageNumber*perPage; index++ {
		page = append(page, fake.render(fake.repositories[names[index]]))
	}
	writeJSON(responseWriter, http.StatusOK, page)
}

func (fake *FakeGitHub) createRepository(responseWriter http.ResponseWriter, request *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Private     bool   `json:"private"`
		HasIssues   bool   `json:"has_issues"`
		HasWiki     bool   `json:"has_wiki"`
		HasProjects bool   `json:"has_projects"`
	}
	if decodeError := json.NewDecoder(request.Body).Decode(&payload); decodeError != nil {
		writeJSON(responseWriter, http.StatusBadRequest, map[string]any{"message": decodeError.Error()})
		return
	}
	if fake.CreateStatus != 0 && fake.CreateStatus != http.StatusCreated {
		writeJSON(responseWriter, fake.CreateStatus, map[string]any{"name": payload.Name, "message": "rejected"})
		return
	}
	if _, exists := fake.repositories[payload.Name]; exists {
		writeJSON(responseWriter, http.StatusUnprocessableEntity, map[string]any{"message": "name already exists on this account"})
		return
	}

	state := &repositoryState{repository: FakeRepository{
		Name:        payload.Name,
		Description: payload.Description,
		Private:     payload.Private,
		HasIssues:   payload.HasIssues,
		HasWiki:     payload.HasWiki,
		HasProjects: payload.HasProjects,
	}}
	fake.repositories[payload.Name] = state
	writeJSON(responseWriter, http.StatusCreated, fake.render(state))
}

func (fake *FakeGitHub) getRepository(responseWriter http.ResponseWriter, repositoryName string) {
	state, exists := fake.repositories[repositoryName]
	if !exists {
		writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	if state.remainingLagReads > 0 {
		state.remainingLagReads--
	} else {
		state.visibleDefault = state.repository.DefaultBranch
	}
	writeJSON(responseWriter, http.StatusOK, fake.render(state))
}

func (fake *FakeGitHub) editRepository(responseWriter http.ResponseWriter, request *http.Request, repositoryName string) {
	state, exists := fake.repositories[repositoryName]
	if !exists {
		writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}

	var payload struct {
		Private       *bool   `json:"private"`
		DefaultBranch *string `json:"default_branch"`
	}
	if decodeError := json.NewDecoder(request.Body).Decode(&payload); decodeError != nil {
		writeJSON(responseWriter, http.StatusBadRequest, map[string]any{"message": decodeError.Error()})
		return
	}

	if payload.DefaultBranch != nil {
		if !containsBranch(state.repository.Branches, *payload.DefaultBranch) {
			writeJSON(responseWriter, http.StatusUnprocessableEntity, map[string]any{"message": "Validation Failed"})
			return
		}
		if *payload.DefaultBranch != state.repository.DefaultBranch {
			state.repository.DefaultBranch = *payload.DefaultBranch
			state.remainingLagReads = fake.PropagationReads
		}
	}
	if payload.Private != nil {
		state.repository.Private = *payload.Private
	}
	writeJSON(responseWriter, http.StatusOK, fake.render(state))
}

func (fake *FakeGitHub) renameBranch(responseWriter http.ResponseWriter, request *http.Request, repositoryName string, branchName string) {
	state, exists := fake.repositories[repositoryName]
	if !exists || !containsBranch(state.repository.Branches, branchName) {
		writeJSON(responseWriter, http.StatusNotFound, map[string]any{"message": "Branch not found"})
		return
	}
	if fake.RenameStatus != 0 {
		writeJSON(responseWriter, fake.RenameStatus, map[string]any{"message": "rename rejected"})
		return
	}

	var payload struct {
		NewName string `json:"new_name"`
	}
	if decodeError := json.NewDecoder(request.Body).Decode(&payload); decodeError != nil {
		writeJSON(responseWriter, http.StatusBadRequest, map[string]any{"message": decodeError.Error()})
		return
	}

	renamedBranches := make([]string, 0, len(state.repository.Branches))
	for _, branch := range state.repository.Branches {
		if branch == branchName {
			branch = payload.NewName
		}
		renamedBranches = append(renamedBranches, branch)
	}
	state.repository.Branches = renamedBranches
	if state.repository.DefaultBranch == branchName {
		state.repository.DefaultBranch = payload.NewName
		state.visibleDefault = payload.NewName
		state.remainingLagReads = 0
	}
	writeJSON(responseWriter, http.StatusCreated, map[string]any{"name": payload.NewName})
}

func (fake *FakeGitHub) render(state *repositoryState) map[string]any {
	return map[string]any{
		"name":           state.repository.Name,
		"full_name":      fake.Organization + "/" + state.repository.Name,
		"description":    state.repository.Description,
		"private":        state.repository.Private,
		"default_branch": state.visibleDefault,
		"clone_url":      "https://github.com/" + fake.Organization + "/" + state.repository.Name + ".git",
	}
}

func containsBranch(branches []string, candidate string) bool {
	for _, branch := range branches {
		if branch == candidate {
			return true
		}
	}
	return false
}

func writeJSON(responseWriter http.ResponseWriter, statusCode int, payload any) {
	responseWriter.Header().Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	responseWriter.WriteHeader(statusCode)
	_ = json.NewEncoder(responseWriter).Encode(payload)
}
