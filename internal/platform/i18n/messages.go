package i18n

import apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"

// Key identifies one catalog message.
type Key string

// Catalog keys.
const (
	KeyDefaultNameA Key = "room.default_name_a"
	KeyDefaultNameB Key = "room.default_name_b"

	KeyLogTitle     Key = "log.title"
	KeyLogTheme     Key = "log.theme"
	KeyLogCreated   Key = "log.created"
	KeyLogStrength  Key = "log.strength"
	KeyLogSenderAI  Key = "log.sender_ai"
	KeyLogSenderSys Key = "log.sender_system"

	KeyTimeClock    Key = "time.clock"
	KeyTimeDateTime Key = "time.datetime"

	KeyPromptRole         Key = "prompt.role"
	KeyPromptTheme        Key = "prompt.theme"
	KeyPromptRules        Key = "prompt.rules"
	KeyPromptInstructions Key = "prompt.instructions"
	KeyPromptSituation    Key = "prompt.situation"
	KeyPromptHistory      Key = "prompt.history"
	KeyPromptAdvisor      Key = "prompt.advisor"
	KeyPromptTask         Key = "prompt.task"
)

var catalogs = map[string]map[Key]string{
	BaseLocale: {
		KeyDefaultNameA: "Participant A",
		KeyDefaultNameB: "Participant B",

		KeyLogTitle:     "=== Bridge-AI Conversation Log ===",
		KeyLogTheme:     "Theme: %s",
		KeyLogCreated:   "Created: %s",
		KeyLogStrength:  "AI strength: %s",
		KeyLogSenderAI:  "🤖 AI Advisor",
		KeyLogSenderSys: "System",

		KeyTimeClock:    "3:04:05 PM",
		KeyTimeDateTime: "1/2/2006, 3:04:05 PM",

		KeyPromptRole:  "You are the \"AI Advisor\", a facilitator mediating a conversation between two people.",
		KeyPromptTheme: "[Purpose and theme of the conversation]",
		KeyPromptRules: "[Important rules]\n" +
			"- You know the unspoken circumstances (secrets) of %[1]s and %[2]s, but neither may ever sense that you do. Never make meta statements such as \"I know your secret\".\n" +
			"- Do not reveal or hint at either secret. Offer gentle questions or new perspectives so both sides can speak honestly.\n" +
			"- Act as a neutral third-party facilitator and prioritise deepening the conversation.\n" +
			"- Keep it short: two to three sentences.\n" +
			"- Reply in the language the conversation is held in.",
		KeyPromptInstructions: "[Additional instructions from the administrator]",
		KeyPromptSituation:    "[Situation of %s]",
		KeyPromptHistory:      "[Conversation so far]",
		KeyPromptAdvisor:      "AI Advisor",
		KeyPromptTask:         "Given the above, write exactly one short message that moves the conversation forward naturally.",
	},
	JapaneseLocale: {
		KeyDefaultNameA: "被験者A",
		KeyDefaultNameB: "被験者B",

		KeyLogTitle:     "=== Bridge-AI 会話ログ ===",
		KeyLogTheme:     "テーマ: %s",
		KeyLogCreated:   "作成日時: %s",
		KeyLogStrength:  "AI強度: %s",
		KeyLogSenderAI:  "🤖 AIアドバイザー",
		KeyLogSenderSys: "システム",

		KeyTimeClock:    "15:04:05",
		KeyTimeDateTime: "2006/1/2 15:04:05",

		KeyPromptRole:  "あなたは「AIアドバイザー」として、二人の対話を仲介するファシリテーターです。",
		KeyPromptTheme: "【対話の目的・テーマ】",
		KeyPromptRules: "【重要ルール】\n" +
			"- あなたは%[1]sさんと%[2]sさんの「表に出していない事情（秘密）」を把握していますが、その存在を相手に悟られてはいけません。「私は秘密を知っている」といったメタ的な発言は厳禁です。\n" +
			"- 秘密を明かしたりほのめかしたりせず、自然な対話の中で双方が本音を出し合えるよう、さりげない質問や新しい視点を提供してください。\n" +
			"- あくまで第三者のファシリテーターとして、対話に厚みを持たせることを優先してください。\n" +
			"- 短く端的に発言してください（2-3文程度）。\n" +
			"- 対話で使われている言語で回答してください。",
		KeyPromptInstructions: "【管理者からの追加指示】",
		KeyPromptSituation:    "【%sさんの状況】",
		KeyPromptHistory:      "【これまでの対話履歴】",
		KeyPromptAdvisor:      "AIアドバイザー",
		KeyPromptTask:         "上記の状況を踏まえ、自然な流れで対話を前進させるための短いメッセージを1つだけ作成してください。",
	},
}

// errorTemplates hold text/template sources rendered with an error's
// metadata.
var errorTemplates = map[string]map[apperrors.Code]string{
	BaseLocale: {
		apperrors.CodeUnknown:                      "Something went wrong. Please try again.",
		apperrors.CodeRoomThemeEmpty:               "A theme is required.",
		apperrors.CodeRoomSecretAEmpty:             "A secret for participant A is required.",
		apperrors.CodeRoomSecretBEmpty:             "A secret for participant B is required.",
		apperrors.CodeRoomNotFound:                 "Room {{.RoomID}} was not found.",
		apperrors.CodeRoomIDExhausted:              "Could not allocate a room id. Please try again.",
		apperrors.CodeMessageInvalidRole:           "The message role is not valid.",
		apperrors.CodeMessageEmpty:                 "Message content is required.",
		apperrors.CodeMessageTooLong:               "Messages are limited to {{.Limit}} characters.",
		apperrors.CodeFacilitatorCredentialMissing: "The AI provider API key is not configured.",
		apperrors.CodeFacilitatorRateLimited:       "The AI provider is rate limiting requests (429). Please wait and try again.",
		apperrors.CodeFacilitatorFailed:            "AI error: {{.Detail}}",
		apperrors.CodeFacilitatorEmptyReply:        "The AI provider returned an empty reply.",
		apperrors.CodeSessionAlreadyBound:          "This connection has already joined a room.",
		apperrors.CodeSessionNotBound:              "Join the room before sending events.",
		apperrors.CodeSessionRoleMismatch:          "This connection is not allowed to act as {{.Role}} in this room.",
		apperrors.CodeSessionInvalidRole:           "Role must be A or B.",
		apperrors.CodeFrameInvalid:                 "The event payload is malformed.",
		apperrors.CodeFrameUnsupported:             "Unsupported event type {{.Type}}.",
		apperrors.CodeFrameTooLarge:                "The event payload is too large.",
		apperrors.CodeFrameRateLimited:             "Too many events. The connection will be closed.",
		apperrors.CodeServerShuttingDown:           "The server is shutting down. Please reconnect shortly.",
		apperrors.CodeAdminUnauthenticated:         "Administrator sign-in is required.",
		apperrors.CodeAdminInvalidCredentials:      "The administrator ID or password is incorrect.",
		apperrors.CodeAdminSessionExpired:          "The administrator session has expired. Please sign in again.",
		apperrors.CodeAdminPermissionDenied:        "Administrator privileges are required.",
		apperrors.CodeAdminRequestInvalid:          "The request body is malformed.",
		apperrors.CodeAuditUnavailable:             "The intervention audit log is not available.",
	},
	JapaneseLocale: {
		apperrors.CodeUnknown:                      "エラーが発生しました。もう一度お試しください。",
		apperrors.CodeRoomThemeEmpty:               "テーマを入力してください。",
		apperrors.CodeRoomSecretAEmpty:             "被験者Aの秘密を入力してください。",
		apperrors.CodeRoomSecretBEmpty:             "被験者Bの秘密を入力してください。",
		apperrors.CodeRoomNotFound:                 "ルーム {{.RoomID}} が見つかりません。",
		apperrors.CodeRoomIDExhausted:              "ルームIDを割り当てられませんでした。もう一度お試しください。",
		apperrors.CodeMessageInvalidRole:           "メッセージの役割が不正です。",
		apperrors.CodeMessageEmpty:                 "メッセージを入力してください。",
		apperrors.CodeMessageTooLong:               "メッセージは{{.Limit}}文字以内で入力してください。",
		apperrors.CodeFacilitatorCredentialMissing: "APIキーが設定されていません",
		apperrors.CodeFacilitatorRateLimited:       "APIの利用制限(429)が発生しています。しばらく待ってから再度お試しください。",
		apperrors.CodeFacilitatorFailed:            "AIエラー: {{.Detail}}",
		apperrors.CodeFacilitatorEmptyReply:        "AIから空の応答が返されました。",
		apperrors.CodeSessionAlreadyBound:          "この接続はすでにルームに参加しています。",
		apperrors.CodeSessionNotBound:              "先にルームに参加してください。",
		apperrors.CodeSessionRoleMismatch:          "この接続は{{.Role}}として操作できません。",
		apperrors.CodeSessionInvalidRole:           "役割はAまたはBを指定してください。",
		apperrors.CodeFrameInvalid:                 "イベントの形式が正しくありません。",
		apperrors.CodeFrameUnsupported:             "未対応のイベント {{.Type}} です。",
		apperrors.CodeFrameTooLarge:                "イベントのサイズが大きすぎます。",
		apperrors.CodeFrameRateLimited:             "イベントが多すぎるため接続を終了します。",
		apperrors.CodeServerShuttingDown:           "サーバーを停止しています。しばらくしてから再接続してください。",
		apperrors.CodeAdminUnauthenticated:         "管理者ログインが必要です。",
		apperrors.CodeAdminInvalidCredentials:      "管理者IDまたはパスワードが違います。",
		apperrors.CodeAdminSessionExpired:          "管理者セッションの有効期限が切れました。再度ログインしてください。",
		apperrors.CodeAdminPermissionDenied:        "管理者権限が必要です。",
		apperrors.CodeAdminRequestInvalid:          "リクエストの形式が正しくありません。",
		apperrors.CodeAuditUnavailable:             "介入ログは利用できません。",
	},
}
