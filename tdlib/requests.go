package tdlib

import "encoding/base64"

// Meta carries the fields TDLib uses to route a request.
type Meta struct {
	Type  string `json:"@type"`
	Extra string `json:"@extra,omitempty"`
}

func (m *Meta) meta() *Meta { return m }

// Request is a TDLib function call. Requests are stamped with their @type
// and @extra when encoded, so a request value must not be sent from two
// goroutines at once.
type Request interface {
	TypeName() string
	meta() *Meta
}

func encodeRequest(req Request, extra string) ([]byte, error) {
	m := req.meta()
	m.Type = req.TypeName()
	m.Extra = extra
	return json.Marshal(req)
}

type GetAuthorizationState struct{ Meta }

func (GetAuthorizationState) TypeName() string { return "getAuthorizationState" }

// SetTdlibParameters configures a fresh TDLib instance. DatabaseEncryptionKey
// is TDLib "bytes" and therefore base64 encoded.
type SetTdlibParameters struct {
	Meta
	UseTestDC             bool   `json:"use_test_dc"`
	DatabaseDirectory     string `json:"database_directory"`
	FilesDirectory        string `json:"files_directory"`
	DatabaseEncryptionKey string `json:"database_encryption_key"`
	UseFileDatabase       bool   `json:"use_file_database"`
	UseChatInfoDatabase   bool   `json:"use_chat_info_database"`
	UseMessageDatabase    bool   `json:"use_message_database"`
	UseSecretChats        bool   `json:"use_secret_chats"`
	APIID                 int32  `json:"api_id"`
	APIHash               string `json:"api_hash"`
	SystemLanguageCode    string `json:"system_language_code"`
	DeviceModel           string `json:"device_model"`
	SystemVersion         string `json:"system_version"`
	ApplicationVersion    string `json:"application_version"`
}

func (SetTdlibParameters) TypeName() string { return "setTdlibParameters" }

type CheckDatabaseEncryptionKey struct {
	Meta
	EncryptionKey string `json:"encryption_key"`
}

func (CheckDatabaseEncryptionKey) TypeName() string { return "checkDatabaseEncryptionKey" }

func encodeKey(key string) string {
	if key == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(key))
}

type SetAuthenticationPhoneNumber struct {
	Meta
	PhoneNumber string `json:"phone_number"`
}

func (SetAuthenticationPhoneNumber) TypeName() string { return "setAuthenticationPhoneNumber" }

type CheckAuthenticationCode struct {
	Meta
	Code string `json:"code"`
}

func (CheckAuthenticationCode) TypeName() string { return "checkAuthenticationCode" }

type CheckAuthenticationPassword struct {
	Meta
	Password string `json:"password"`
}

func (CheckAuthenticationPassword) TypeName() string { return "checkAuthenticationPassword" }

type GetMe struct{ Meta }

func (GetMe) TypeName() string { return "getMe" }

// LoadChats asks TDLib to load more chats into a chat list. The chats arrive
// as updateNewChat updates; a 404 error means the list is fully loaded.
type LoadChats struct {
	Meta
	ChatList ChatList `json:"chat_list"`
	Limit    int32    `json:"limit"`
}

func (LoadChats) TypeName() string { return "loadChats" }

type GetChats struct {
	Meta
	ChatList ChatList `json:"chat_list"`
	Limit    int32    `json:"limit"`
}

func (GetChats) TypeName() string { return "getChats" }

type GetChat struct {
	Meta
	ChatID int64 `json:"chat_id"`
}

func (GetChat) TypeName() string { return "getChat" }

type GetChatHistory struct {
	Meta
	ChatID        int64 `json:"chat_id"`
	FromMessageID int64 `json:"from_message_id"`
	Offset        int32 `json:"offset"`
	Limit         int32 `json:"limit"`
	OnlyLocal     bool  `json:"only_local"`
}

func (GetChatHistory) TypeName() string { return "getChatHistory" }

type GetSupergroup struct {
	Meta
	SupergroupID int64 `json:"supergroup_id"`
}

func (GetSupergroup) TypeName() string { return "getSupergroup" }

type ViewMessages struct {
	Meta
	ChatID     int64   `json:"chat_id"`
	MessageIDs []int64 `json:"message_ids"`
	ForceRead  bool    `json:"force_read"`
}

func (ViewMessages) TypeName() string { return "viewMessages" }

type SetLogVerbosityLevel struct {
	Meta
	NewVerbosityLevel int32 `json:"new_verbosity_level"`
}

func (SetLogVerbosityLevel) TypeName() string { return "setLogVerbosityLevel" }

// LogStream is one of logStreamDefault, logStreamFile or logStreamEmpty.
type LogStream struct {
	Type           string `json:"@type"`
	Path           string `json:"path,omitempty"`
	MaxFileSize    int64  `json:"max_file_size,omitempty"`
	RedirectStderr bool   `json:"redirect_stderr,omitempty"`
}

func LogStreamFile(path string, maxFileSize int64) LogStream {
	return LogStream{Type: "logStreamFile", Path: path, MaxFileSize: maxFileSize}
}

func LogStreamEmpty() LogStream { return LogStream{Type: "logStreamEmpty"} }

func LogStreamDefault() LogStream { return LogStream{Type: "logStreamDefault"} }

type SetLogStream struct {
	Meta
	LogStream LogStream `json:"log_stream"`
}

func (SetLogStream) TypeName() string { return "setLogStream" }

// Close asks TDLib to close the instance; authorizationStateClosed follows.
type Close struct{ Meta }

func (Close) TypeName() string { return "close" }
