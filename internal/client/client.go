package client

// Client wires the panels of one logged-in browser session together.
type Client struct {
	API            *API
	Gate           *Gate
	Courses        *Registry
	Documents      *DocumentSelection
	Conversation   *Conversation
	Generation     *Generation
	Learning       *Learning
	Files          *Files
	UserIdentifier string
}

// New builds a client for the backend at baseURL. An empty userIdentifier
// gets a fresh one.
func New(baseURL, userIdentifier string, opts ...Option) *Client {
	if userIdentifier == "" {
		userIdentifier = NewUserIdentifier()
	}
	api := NewAPI(baseURL, opts...)
	courses := NewRegistry()
	docs := NewDocumentSelection()
	return &Client{
		API:            api,
		Gate:           NewGate(api),
		Courses:        courses,
		Documents:      docs,
		Conversation:   NewConversation(api, courses, docs, WithUserIdentifier(userIdentifier)),
		Generation:     NewGeneration(api),
		Learning:       NewLearning(api, userIdentifier),
		Files:          NewFiles(api),
		UserIdentifier: userIdentifier,
	}
}

// GenerateParams builds a generation request for the selected course and
// documents.
func (c *Client) GenerateParams(topic string) GenerateParams {
	return GenerateParams{
		CourseName:        c.Conversation.Course().Name,
		Topic:             topic,
		DocumentFilenames: c.Documents.Filenames(),
	}
}
