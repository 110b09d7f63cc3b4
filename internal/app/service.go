package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"binder/api/internal/blob"
	"binder/api/internal/config"
	"binder/api/internal/export"
	"binder/api/internal/gitrepo"
	"binder/api/internal/outline"
	"binder/api/internal/resequence"
	"binder/api/internal/search"
	"binder/api/internal/session"
	"binder/api/internal/store"
	"binder/api/internal/util"
)

const historyLimit = 50

type dataStore interface {
	ListDocuments(context.Context) ([]store.Document, error)
	GetDocument(context.Context, string) (store.Document, error)
	InsertDocument(context.Context, store.Document, store.Content) error
	TouchDocument(context.Context, string, string) error
	LoadOutline(context.Context, string) (*outline.Tree, error)
	InsertContent(context.Context, store.Content) error
	UpdateDocumentTitle(ctx context.Context, documentID, title, updatedBy string) error
	RenameContent(ctx context.Context, documentID, contentID, name, updatedBy string) error
	Gateway(string) resequence.Gateway
	Ping(ctx context.Context) error
}

type gitService interface {
	EnsureOutlineRepo(string, []outline.Record, string) error
	CommitOutline(string, []outline.Record, string, string) (gitrepo.CommitInfo, error)
	History(string, int) ([]gitrepo.CommitInfo, error)
	GetOutlineByHash(string, string) ([]outline.Record, gitrepo.CommitInfo, error)
}

type searchService interface {
	Search(q search.Query) search.Response
	IndexNodes(nodes []search.NodeRecord)
	ReindexAllFromPG(ctx context.Context)
}

type draftStore interface {
	Begin(ctx context.Context, documentID, actor, base string) error
	Append(ctx context.Context, documentID string, entry session.Entry) error
	Load(ctx context.Context, documentID string) (session.Draft, bool, error)
	Clear(ctx context.Context, documentID string) error
}

type bodyStore interface {
	GetBody(ctx context.Context, documentID, nodeID string) ([]byte, error)
	PutBody(ctx context.Context, documentID, nodeID string, body []byte) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	git      gitService
	search   searchService
	drafts   draftStore
	bodies   bodyStore
	exporter *export.Service

	sessionsMu sync.Mutex
	sessions   map[string]*resequence.Session
}

type Option func(*Service)

// WithDraftStore keeps staged moves in Redis so they survive a restart.
func WithDraftStore(drafts *session.RedisStore) Option {
	return func(s *Service) {
		if drafts != nil {
			s.drafts = drafts
		}
	}
}

// WithBodyStore enables node bodies and their export.
func WithBodyStore(bodies *blob.Store) Option {
	return func(s *Service) {
		if bodies != nil {
			s.bodies = bodies
		}
	}
}

func New(cfg config.Config, dataStore *store.PostgresStore, gitService *gitrepo.Service, searchService *search.Service, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		git:      gitService,
		sessions: make(map[string]*resequence.Session),
	}
	if searchService != nil {
		s.search = searchService
	}
	for _, opt := range opts {
		opt(s)
	}
	s.initExporter()
	return s
}

func (s *Service) initExporter() {
	s.exporter = export.NewService(s, s.bodies)
}

// Bootstrap seeds a sample document into an empty database, makes sure every
// document has a version repository and restores staged drafts.
func (s *Service) Bootstrap(ctx context.Context) error {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		if err := s.seed(ctx); err != nil {
			return err
		}
		documents, err = s.store.ListDocuments(ctx)
		if err != nil {
			return err
		}
	}

	for _, doc := range documents {
		sess, err := s.sessionFor(ctx, doc.ID)
		if err != nil {
			log.Printf("bootstrap: load outline %s: %v", doc.ID, err)
			continue
		}
		if err := s.git.EnsureOutlineRepo(doc.ID, sess.Live().Records(), doc.UpdatedBy); err != nil {
			log.Printf("bootstrap: ensure outline repo %s: %v", doc.ID, err)
		}
	}
	if s.search != nil {
		s.search.ReindexAllFromPG(ctx)
	}
	return nil
}

func (s *Service) seed(ctx context.Context) error {
	const owner = "Avery"
	doc := store.Document{ID: "handbook", Title: "Team Handbook", UpdatedBy: owner}
	root := store.Content{ID: "handbook-root", Name: "Team Handbook"}
	if err := s.store.InsertDocument(ctx, doc, root); err != nil {
		return err
	}

	chapters := []struct {
		id       string
		name     string
		sections []string
	}{
		{id: "onboarding", name: "Onboarding", sections: []string{"First week", "Accounts and access"}},
		{id: "engineering", name: "Engineering", sections: []string{"Code review", "Releases", "On-call"}},
		{id: "policies", name: "Policies", sections: []string{"Travel", "Equipment"}},
	}
	for i, chapter := range chapters {
		parent := root.ID
		if err := s.store.InsertContent(ctx, store.Content{
			ID: chapter.id, DocumentID: doc.ID, Name: chapter.name, ParentID: &parent, SortOrder: i, Level: 1, UpdatedBy: owner,
		}); err != nil {
			return err
		}
		for j, name := range chapter.sections {
			chapterID := chapter.id
			if err := s.store.InsertContent(ctx, store.Content{
				ID: fmt.Sprintf("%s-%d", chapter.id, j+1), DocumentID: doc.ID, Name: name, ParentID: &chapterID, SortOrder: j, Level: 2, UpdatedBy: owner,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// sessionFor returns the resequencing session of documentID, loading the
// outline and replaying a stored draft on first use.
func (s *Service) sessionFor(ctx context.Context, documentID string) (*resequence.Session, error) {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[documentID]
	s.sessionsMu.Unlock()
	if ok {
		return sess, nil
	}

	tree, err := s.store.LoadOutline(ctx, documentID)
	if err != nil {
		return nil, err
	}
	opts := []resequence.Option{
		resequence.WithMaxLevel(s.maxLevel()),
		resequence.WithCommitHook(s.commitHook(documentID)),
	}
	if s.drafts != nil {
		opts = append(opts, resequence.WithJournal(draftJournal{documentID: documentID, drafts: s.drafts}))
	}
	created := resequence.New(tree, s.store.Gateway(documentID), opts...)
	s.replayDraft(ctx, documentID, created)

	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if existing, ok := s.sessions[documentID]; ok {
		return existing, nil
	}
	s.sessions[documentID] = created
	return created, nil
}

func (s *Service) maxLevel() int {
	if s.cfg.MaxLevel > 0 {
		return s.cfg.MaxLevel
	}
	return outline.MaxLevel
}

func (s *Service) replayDraft(ctx context.Context, documentID string, sess *resequence.Session) {
	if s.drafts == nil {
		return
	}
	draft, ok, err := s.drafts.Load(ctx, documentID)
	if err != nil {
		log.Printf("drafts: load %s: %v", documentID, err)
		return
	}
	if !ok {
		return
	}
	// A draft staged against another outline was either committed before a
	// crash or outlived a change made elsewhere. Its moves no longer apply.
	if base := sess.Live().Fingerprint(); draft.Base != base {
		log.Printf("drafts: skip stale draft %s: base %q, live %q", documentID, draft.Base, base)
		s.clearDraft(ctx, documentID)
		return
	}
	if err := sess.Enter(withActor(ctx, draft.Actor)); err != nil {
		log.Printf("drafts: enter %s: %v", documentID, err)
		return
	}
	for _, entry := range draft.Entries {
		move := entry.Move
		if _, err := sess.Apply(withActor(ctx, entry.Actor), move); err != nil {
			log.Printf("drafts: replay %s %s %s: %v", documentID, move.Direction, move.NodeID, err)
		}
	}
	log.Printf("drafts: restored %d staged moves for %s", len(draft.Entries), documentID)
}

// commitHook publishes a newly live tree to the version history and the
// search index.
func (s *Service) commitHook(documentID string) resequence.CommitHook {
	return func(ctx context.Context, change resequence.Change) {
		ctx = context.WithoutCancel(ctx)
		actor := actorFromContext(ctx)

		if _, err := s.git.CommitOutline(documentID, change.Tree.Records(), actor, commitMessage(change)); err != nil {
			log.Printf("versions: commit outline %s: %v", documentID, err)
		}
		if err := s.store.TouchDocument(ctx, documentID, actor); err != nil {
			log.Printf("store: touch document %s: %v", documentID, err)
		}
		if s.search != nil {
			s.search.IndexNodes(search.RecordsFromTree(documentID, change.Tree))
		}
	}
}

func commitMessage(change resequence.Change) string {
	switch {
	case change.Renamed != "":
		return fmt.Sprintf("Rename %s", change.Renamed)
	case change.Autocommit && len(change.Moves) == 1:
		m := change.Moves[0]
		return fmt.Sprintf("Move %s %s", m.NodeID, m.Direction)
	case change.Autocommit:
		return fmt.Sprintf("Add content %s", change.Changed[0].ID)
	default:
		return fmt.Sprintf("Resequence %d nodes in %d moves", len(change.Changed), len(change.Moves))
	}
}

func (s *Service) clearDraft(ctx context.Context, documentID string) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Clear(ctx, documentID); err != nil {
		log.Printf("drafts: clear %s: %v", documentID, err)
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Check is one dependency entry of the readiness report.
type Check struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Required bool   `json:"required"`
}

// Readiness pings the database and, when configured, the draft journal.
// Only the database gates readiness; without Redis staged moves still work
// in memory.
func (s *Service) Readiness(ctx context.Context) (bool, map[string]Check) {
	checks := map[string]Check{"database": check(ctx, s.store.Ping, true)}
	if p, ok := s.drafts.(interface{ Ping(context.Context) error }); ok {
		checks["drafts"] = check(ctx, p.Ping, false)
	}
	ready := true
	for _, c := range checks {
		if c.Required && c.Status != "ok" {
			ready = false
		}
	}
	return ready, checks
}

func check(ctx context.Context, ping func(context.Context) error, required bool) Check {
	if err := ping(ctx); err != nil {
		return Check{Status: "error", Error: err.Error(), Required: required}
	}
	return Check{Status: "ok", Required: required}
}

// LiveOutline returns the committed tree of documentID.
func (s *Service) LiveOutline(ctx context.Context, documentID string) (*outline.Tree, error) {
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return sess.Live(), nil
}

func (s *Service) ListDocuments(ctx context.Context) ([]map[string]any, error) {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(documents))
	for _, doc := range documents {
		items = append(items, s.documentPayload(doc))
	}
	return items, nil
}

func (s *Service) documentPayload(doc store.Document) map[string]any {
	state := resequence.StateInactive
	s.sessionsMu.Lock()
	if sess, ok := s.sessions[doc.ID]; ok {
		state = sess.State()
	}
	s.sessionsMu.Unlock()
	return map[string]any{
		"id":            doc.ID,
		"title":         doc.Title,
		"rootContentId": doc.RootContentID,
		"updatedBy":     doc.UpdatedBy,
		"updatedAt":     doc.UpdatedAt.Format(time.RFC3339),
		"resequencing":  state,
	}
}

func (s *Service) GetDocumentSummary(ctx context.Context, documentID string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.documentPayload(doc), nil
}

// CreateDocument creates a document with its root content node.
func (s *Service) CreateDocument(ctx context.Context, title, actor string) (map[string]any, error) {
	documentTitle := strings.TrimSpace(title)
	if documentTitle == "" {
		documentTitle = "Untitled Document"
	}
	documentID := "doc-" + util.NewID("")[:10]
	root := store.Content{ID: util.NewID("n"), Name: documentTitle}
	if err := s.store.InsertDocument(ctx, store.Document{
		ID:        documentID,
		Title:     documentTitle,
		UpdatedBy: actor,
	}, root); err != nil {
		return nil, err
	}

	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.git.EnsureOutlineRepo(documentID, sess.Live().Records(), actor); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexNodes(search.RecordsFromTree(documentID, sess.Live()))
	}
	return s.GetOutline(ctx, documentID, "")
}

// GetOutline returns the live tree, or the working copy when view is
// "working" and the document is resequencing, with the controls of every node.
func (s *Service) GetOutline(ctx context.Context, documentID, view string) (map[string]any, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}

	tree := sess.Live()
	shown := "live"
	if view == "working" {
		if working := sess.Working(); working != nil {
			tree = working
			shown = "working"
		}
	}

	controls, err := allControls(tree)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"document": s.documentPayload(doc),
		"view":     shown,
		"state":    sess.State(),
		"tree":     tree.Root(),
		"controls": controls,
	}, nil
}

func allControls(tree *outline.Tree) (map[string]outline.Controls, error) {
	controls := make(map[string]outline.Controls, tree.Len())
	var walkErr error
	tree.Walk(func(node *outline.Node) bool {
		c, err := tree.Controls(node.ID)
		if err != nil {
			walkErr = err
			return false
		}
		controls[node.ID] = c
		return true
	})
	return controls, walkErr
}

// GetControls reports the placement and enabled moves of one node in the
// tree the user currently sees.
func (s *Service) GetControls(ctx context.Context, documentID, nodeID string) (map[string]any, error) {
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	tree := sess.View()
	placement, err := tree.FindNodeAndSiblings(nodeID)
	if err != nil {
		return nil, err
	}
	controls, err := tree.Controls(nodeID)
	if err != nil {
		return nil, err
	}
	siblings := make([]string, 0, len(placement.Siblings))
	for _, sibling := range placement.Siblings {
		siblings = append(siblings, sibling.ID)
	}
	parentID := ""
	if parent, err := tree.FindParent(nodeID); err == nil && parent != nil {
		parentID = parent.ID
	}
	return map[string]any{
		"nodeId":   nodeID,
		"parentId": nilIfEmpty(parentID),
		"index":    placement.Index,
		"siblings": siblings,
		"controls": controls,
	}, nil
}

// Move applies one reorder move. While resequencing it only changes the
// working copy; otherwise it is saved immediately.
func (s *Service) Move(ctx context.Context, documentID, actor, nodeID, direction string) (map[string]any, error) {
	dir, err := outline.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(nodeID) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "nodeId is required", nil)
	}
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Apply(withActor(ctx, actor), outline.Move{Direction: dir, NodeID: nodeID})
	if err != nil {
		return nil, err
	}

	changed := res.Changed
	if changed == nil {
		changed = []outline.Position{}
	}
	return map[string]any{
		"outcome":   res.Outcome,
		"changed":   changed,
		"staged":    res.Staged,
		"state":     sess.State(),
		"direction": dir,
		"nodeId":    nodeID,
	}, nil
}

func (s *Service) EnterResequencing(ctx context.Context, documentID, actor string) (map[string]any, error) {
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := sess.Enter(withActor(ctx, actor)); err != nil {
		return nil, err
	}
	return resequencingPayload(documentID, sess), nil
}

func (s *Service) CommitResequencing(ctx context.Context, documentID, actor string) (map[string]any, error) {
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	delta, err := sess.Commit(withActor(ctx, actor))
	if err != nil {
		return nil, err
	}
	if delta == nil {
		delta = []outline.Position{}
	}
	payload := resequencingPayload(documentID, sess)
	payload["committed"] = delta
	return payload, nil
}

func (s *Service) DiscardResequencing(ctx context.Context, documentID string) (map[string]any, error) {
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := sess.Discard(ctx); err != nil {
		return nil, err
	}
	return resequencingPayload(documentID, sess), nil
}

func (s *Service) ResequencingState(ctx context.Context, documentID string) (map[string]any, error) {
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return resequencingPayload(documentID, sess), nil
}

func resequencingPayload(documentID string, sess *resequence.Session) map[string]any {
	pending := sess.Pending()
	if pending == nil {
		pending = []outline.Position{}
	}
	journal := sess.Journal()
	if journal == nil {
		journal = []outline.Move{}
	}
	payload := map[string]any{
		"documentId": documentID,
		"state":      sess.State(),
		"pending":    pending,
		"journal":    journal,
		"lastError":  nil,
	}
	if err := sess.LastError(); err != nil {
		lastError := map[string]any{"message": err.Error()}
		var persistErr *resequence.PersistenceError
		if errors.As(err, &persistErr) {
			lastError["failures"] = persistErr.Failures
		}
		payload["lastError"] = lastError
	}
	return payload
}

// AddContent appends a new node named name under parentID.
func (s *Service) AddContent(ctx context.Context, documentID, actor, parentID, name string) (map[string]any, error) {
	nodeName := strings.TrimSpace(name)
	if nodeName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if strings.TrimSpace(parentID) == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "parentId is required", nil)
	}
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}

	node := &outline.Node{ID: util.NewID("n"), Name: nodeName}
	record, err := sess.AddChild(withActor(ctx, actor), parentID, node, func(ctx context.Context, record outline.Record) error {
		content := store.ContentFromRecord(documentID, record)
		content.UpdatedBy = actor
		return s.store.InsertContent(ctx, content)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"content": record}, nil
}

// RenameContent changes the name of nodeID on the live outline. While
// resequencing the staged copy keeps its order and picks up the new name.
func (s *Service) RenameContent(ctx context.Context, documentID, actor, nodeID, name string) (map[string]any, error) {
	nodeName := strings.TrimSpace(name)
	if nodeName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	sess, err := s.sessionFor(ctx, documentID)
	if err != nil {
		return nil, err
	}

	record, err := sess.Rename(withActor(ctx, actor), nodeID, nodeName, func(ctx context.Context) error {
		return s.store.RenameContent(ctx, documentID, nodeID, nodeName, actor)
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"content": record}, nil
}

// RenameDocument changes the title of documentID. The root node keeps its
// own name.
func (s *Service) RenameDocument(ctx context.Context, documentID, actor, title string) (map[string]any, error) {
	documentTitle := strings.TrimSpace(title)
	if documentTitle == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if err := s.store.UpdateDocumentTitle(ctx, documentID, documentTitle, actor); err != nil {
		return nil, err
	}
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.documentPayload(doc), nil
}

func (s *Service) liveNode(ctx context.Context, documentID, nodeID string) (*outline.Node, error) {
	tree, err := s.LiveOutline(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return tree.Lookup(nodeID)
}

func (s *Service) GetBody(ctx context.Context, documentID, nodeID string) ([]byte, error) {
	if s.bodies == nil {
		return nil, errBodiesUnavailable
	}
	if _, err := s.liveNode(ctx, documentID, nodeID); err != nil {
		return nil, err
	}
	return s.bodies.GetBody(ctx, documentID, nodeID)
}

func (s *Service) PutBody(ctx context.Context, documentID, actor, nodeID string, body []byte) (map[string]any, error) {
	if s.bodies == nil {
		return nil, errBodiesUnavailable
	}
	if _, err := s.liveNode(ctx, documentID, nodeID); err != nil {
		return nil, err
	}
	if err := s.bodies.PutBody(ctx, documentID, nodeID, body); err != nil {
		return nil, err
	}
	if err := s.store.TouchDocument(ctx, documentID, actor); err != nil {
		log.Printf("store: touch document %s: %v", documentID, err)
	}
	return map[string]any{
		"documentId": documentID,
		"nodeId":     nodeID,
		"key":        blob.BodyKey(documentID, nodeID),
		"size":       len(body),
	}, nil
}

func (s *Service) History(ctx context.Context, documentID string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	commits, err := s.git.History(documentID, historyLimit)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(commits))
	for _, item := range commits {
		items = append(items, map[string]any{
			"hash":      item.Hash,
			"message":   strings.TrimSpace(item.Message),
			"author":    item.Author,
			"createdAt": item.CreatedAt.Format(time.RFC3339),
			"meta":      fmt.Sprintf("%s · %s", item.Author, relative(item.CreatedAt)),
		})
	}
	return map[string]any{
		"documentId": documentID,
		"commits":    items,
	}, nil
}

// HistoryVersion returns the outline stored at hash and the nodes that differ
// from the live tree.
func (s *Service) HistoryVersion(ctx context.Context, documentID, hash string) (map[string]any, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	records, info, err := s.git.GetOutlineByHash(documentID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Version not found", map[string]any{"hash": hash})
	}
	tree, err := outline.Build(records)
	if err != nil {
		return nil, err
	}
	live, err := s.LiveOutline(ctx, documentID)
	if err != nil {
		return nil, err
	}
	commit := map[string]any{
		"hash":      info.Hash,
		"message":   strings.TrimSpace(info.Message),
		"author":    info.Author,
		"createdAt": info.CreatedAt.Format(time.RFC3339),
	}
	return map[string]any{
		"documentId":   documentID,
		"commit":       commit,
		"tree":         tree.Root(),
		"changedSince": gitrepo.DiffRecords(records, live.Records()),
	}, nil
}

func (s *Service) ExportNode(ctx context.Context, req export.Request) (*export.Result, error) {
	if _, err := s.store.GetDocument(ctx, req.DocumentID); err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, req)
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

var errBodiesUnavailable = domainError(http.StatusServiceUnavailable, "BODIES_UNAVAILABLE", "Content body storage is not configured", nil)

type actorKey struct{}

func withActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return defaultActor
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func relative(value time.Time) string {
	minutes := int(time.Since(value).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	return fmt.Sprintf("%dd ago", days)
}
