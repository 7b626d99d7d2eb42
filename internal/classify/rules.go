package classify

import (
	"regexp"
	"strings"

	"github.com/local/assistcore/internal/generators"
)

// Rule routes a lower-cased prompt to a category when Match reports true.
type Rule struct {
	Category string
	Match    func(lower string) bool
}

func re(pattern string) func(string) bool {
	return regexp.MustCompile(pattern).MatchString
}

func anyOf(preds ...func(string) bool) func(string) bool {
	return func(s string) bool {
		for _, p := range preds {
			if p(s) {
				return true
			}
		}
		return false
	}
}

// short limits a predicate to prompts of at most n words, so a greeting word at the start of
// a real question does not swallow it.
func short(n int, pred func(string) bool) func(string) bool {
	return func(s string) bool {
		return len(strings.Fields(s)) <= n && pred(s)
	}
}

var (
	thanksRe       = regexp.MustCompile(`\b(?:thanks|thank\s+(?:you|u)|thx|ty|cheers|much\s+appreciated|appreciate\s+(?:it|that|your\s+help))\b`)
	thankYouNoteRe = regexp.MustCompile(`thank[- ]you\s+(?:note|letter|card|email|message|speech)`)
)

func gratitude(lower string) bool {
	return thanksRe.MatchString(lower) && !thankYouNoteRe.MatchString(lower)
}

var mathWords = re(`\b(?:solve|equation|equations|algebra|calculus|derivative|integral|geometry|trigonometry|quadratic|pythagorean|fraction|fractions)\b`)

// rules is evaluated top to bottom and the first match wins. Order matters where predicates
// overlap: social turns and arithmetic come first, then specific life domains, and the
// generic question shapes (comparison, definition, how-to, explain) come last.
var rules = []Rule{
	{generators.CategoryGreeting, short(6, re(`^(?:hi|hello|hey|heya|hiya|howdy|greetings|yo|sup|good\s+(?:morning|afternoon|evening|day)|what'?s\s+up)\b|^how\s+(?:are|r)\s+(?:you|u|ya)\b|^how'?s\s+it\s+going\b`))},
	{generators.CategoryGratitude, gratitude},
	{generators.CategoryFarewell, short(6, re(`^(?:bye|goodbye|good\s*bye|see\s+(?:you|ya)|farewell|good\s+night|gn|later|ttyl|take\s+care|catch\s+you\s+later)\b`))},
	{generators.CategoryMath, anyOf(generators.IsArithmetic, mathWords)},
	{generators.CategoryIdentity, re(`\b(?:who\s+are\s+you|what\s+are\s+you|what(?:'s|\s+is)\s+your\s+name|are\s+you\s+(?:a\s+)?(?:human|real|robot|bot|an?\s+ai)|what\s+can\s+you\s+do|who\s+(?:made|created|built)\s+you|introduce\s+yourself)\b`)},
	{generators.CategorySummarize, re(`^(?:please\s+)?(?:summari[sz]e|tl;?dr|give\s+me\s+a\s+summary)\b`)},
	{"translate", re(`\b(?:translate|translation\s+of)\b|\bhow\s+(?:do|would)\s+(?:you|i)\s+say\b|\bwhat\s+is\s+.+\s+in\s+(?:spanish|french|german|italian|portuguese|japanese|chinese)\b`)},
	{"jokes", re(`\b(?:tell\s+me\s+a\s+joke|jokes?|make\s+me\s+laugh|something\s+funny|a\s+pun|puns)\b`)},
	{"emotional", re(`\b(?:i\s+feel\s+(?:so\s+)?(?:sad|down|lonely|low|anxious|depressed|hopeless|overwhelmed|empty|lost|alone|hurt)|feeling\s+(?:sad|down|lonely|low|anxious|depressed|hopeless|overwhelmed|empty|lost)|i(?:'m|\s+am)\s+(?:so\s+|really\s+)?(?:sad|lonely|depressed|anxious|upset|heartbroken|miserable|scared|hurting)|anxiety|panic\s+attacks?|lonely|depressed|heartbroken|grieving|grief|crying)\b`)},
	{"motivation", re(`\b(?:motivate\s+me|motivation|motivational|i\s+want\s+to\s+give\s+up|giving\s+up|encourage\s+me|encouragement|believe\s+in\s+myself|self[- ]esteem|need\s+a\s+push)\b`)},
	{"career", re(`\b(?:career|resume|cv|cover\s+letter|job\s+(?:interview|offer|search|hunt(?:ing)?|application)|interview|promotion|salary|pay\s+raise|ask\s+for\s+a\s+raise|linkedin|hiring|my\s+boss|new\s+job|find\s+a\s+job|quit\s+my\s+job)\b`)},
	{"code", anyOf(
		re(`\b(?:code|coding|programming|programmer|python|javascript|typescript|golang|java|sql|html|css|react|node\.?js|django|api|algorithm|debug(?:ging)?|compiler?|git|github|regex|json|stack\s+trace|syntax\s+error|exception|write\s+a\s+(?:program|script|function))\b`),
		re(`(?:^|\s)(?:c\+\+|c#)(?:\s|$|[?.!,])`),
	)},
	{"writing", re(`\b(?:write|writing|rewrite|essay|poem|poetry|story|short\s+story|blog\s+post|article|draft|proofread|grammar|paragraph|email\s+to|letter\s+to|haiku|caption|slogan)\b`)},
	{"language_learning", re(`\blearn(?:ing)?\s+(?:to\s+speak\s+)?(?:spanish|french|german|english|japanese|chinese|mandarin|italian|korean|portuguese|arabic|russian|a\s+(?:new\s+)?language|languages)\b|\b(?:fluent|fluency|vocabulary|pronunciation|language\s+learning|duolingo|conjugat\w*)\b`)},
	{"technology", re(`\b(?:computer|laptop|smartphone|iphone|android|phone|tablet|internet|wi-?fi|router|software|app|apps|artificial\s+intelligence|ai|machine\s+learning|chatgpt|cloud\s+storage|cybersecurity|password|hacked|malware|gadget|tech|technology|bluetooth|printer|windows|macos|linux)\b`)},
	{"business", re(`\b(?:business|startup|start-up|entrepreneur\w*|company|marketing|customers?|clients?|sales|revenue|profit|brand(?:ing)?|pitch\s+deck|investors?|competitors?)\b`)},
	{"real_estate", re(`\b(?:real\s+estate|mortgage|buy(?:ing)?\s+a\s+(?:house|home|condo|apartment)|first\s+home|rent(?:ing)?|landlord|tenant|lease|property|realtor|down\s+payment|housing\s+market|apartment)\b`)},
	{"finance", re(`\b(?:money|budget(?:ing)?|save|saving|savings|invest(?:ing|ment|ments)?|stocks?|bonds?|index\s+funds?|etf|crypto(?:currency)?|bitcoin|debt|loan|credit\s+(?:card|score)|retire(?:ment)?|401k|ira|tax(?:es)?|interest\s+rate|inflation|financ(?:e|ial)|net\s+worth|emergency\s+fund|paycheck)\b`)},
	{"productivity", re(`\b(?:productiv\w*|procrastinat\w*|time\s+management|manage\s+my\s+time|focus|concentrat\w*|to-?do\s+list|prioriti[sz]\w*|build\s+(?:good\s+)?habits|break\s+(?:a\s+)?(?:bad\s+)?habits?|deadlines?|pomodoro|get\s+more\s+done|distract\w*)\b`)},
	{"legal", re(`\b(?:legal|illegal|law|lawyer|attorney|lawsuit|sue|suing|court|contract|nda|copyright|trademark|patent|my\s+rights|custody|small\s+claims)\b`)},
	{"health", re(`\b(?:health|healthy|exercise|workout|work\s+out|fitness|gym|diet|nutrition|calories|protein|lose\s+weight|weight\s+loss|sleep|insomnia|stress(?:ed)?|burnout|yoga|cardio|running|meditat\w*|doctor|symptoms?|headache|blood\s+pressure|vitamins?)\b`)},
	{"cooking", re(`\b(?:cook|cooking|recipe|recipes|bake|baking|dinner|lunch|breakfast|meal\s+prep|ingredients?|kitchen|dish|pasta|soup|salad|grill|roast)\b`)},
	{"travel", re(`\b(?:travel(?:ing|ling)?|trip|vacation|holiday|flights?|hotel|itinerary|passport|visa|backpack(?:ing)?|tourist|destination|visit(?:ing)?)\b`)},
	{"education", re(`\b(?:study|studying|exams?|test\s+prep|homework|school|college|university|degree|student|teacher|class|course|learn(?:ing)?\s+(?:about|how)|gpa|scholarship)\b`)},
	{"science", re(`\b(?:science|scientific|physics|chemistry|biology|atoms?|molecules?|gravity|quantum|evolution|dna|genes?|photosynthesis|planets?|solar\s+system|galaxy|universe|black\s+holes?|big\s+bang|astronomy|experiment|relativity|cells?)\b`)},
	{"history", re(`\b(?:history|historical|ancient|empire|world\s+war|ww(?:1|2|i|ii)|civil\s+war|revolution|medieval|century|pharaohs?|roman|renaissance|cold\s+war|colonial\w*)\b`)},
	{"relationships", re(`\b(?:relationships?|boyfriend|girlfriend|husband|wife|partner|dating|date\s+ideas|crush|breakup|break\s+up|broke\s+up|marriage|married|divorce|friendship|best\s+friend|my\s+ex)\b`)},
	{"parenting", re(`\b(?:parenting|parents?|my\s+(?:kid|kids|son|daughter|child|children|toddler|baby|teen|teenager)|toddler|newborn|tantrums?|raising\s+(?:kids|children)|screen\s+time|potty)\b`)},
	{"pets", re(`\b(?:pets?|dogs?|puppy|cats?|kitten|vet|hamster|parrot|rabbit|aquarium|fish\s+tank|litter\s+box)\b`)},
	{"home", re(`\b(?:clean(?:ing)?\s+(?:my|the)|declutter\w*|organi[sz]e\s+my\s+(?:home|house|closet|room|garage)|diy|home\s+repair|leak\w*|plumbing|drywall|paint(?:ing)?\s+(?:a|my|the)\s+(?:room|wall|walls|house)|furniture|renovat\w*|mold|laundry|stains?)\b`)},
	{"gardening", re(`\b(?:garden(?:ing)?|plants?|planting|grow(?:ing)?\s+(?:tomatoes|vegetables|herbs|flowers)|seeds?|soil|compost|lawn|houseplants?|succulents?|fertili[sz]er|prune|pruning)\b`)},
	{"fashion", re(`\b(?:fashion|outfits?|what\s+to\s+wear|wear\s+to|clothes|clothing|style\s+tips|wardrobe|dress\s+code|shoes|sneakers)\b`)},
	{"music", re(`\b(?:music|songs?|guitar|piano|drums|violin|sing(?:ing)?|band|album|playlist|musician|chords?|melody|lyrics)\b`)},
	{"entertainment", re(`\b(?:movies?|films?|tv\s+shows?|series|netflix|books?|novels?|reading\s+list|anime|documentary|what\s+to\s+watch|what\s+to\s+read)\b`)},
	{"sports", re(`\b(?:sports?|football|soccer|basketball|baseball|tennis|golf|hockey|cricket|olympics|nba|nfl|fifa|world\s+cup|athletes?|marathon)\b`)},
	{"games", re(`\b(?:games?|gaming|video\s+games?|board\s+games?|chess|puzzles?|playstation|xbox|nintendo|minecraft|fortnite|steam)\b`)},
	{"philosophy", re(`\b(?:philosophy|philosophical|meaning\s+of\s+life|purpose\s+of\s+life|ethics|ethical|moral(?:ity)?|free\s+will|consciousness|existential\w*|stoic\w*|socrates|plato|aristotle|nietzsche|kant)\b`)},
	{"environment", re(`\b(?:environment(?:al)?|climate|global\s+warming|sustainab\w*|recycl\w*|pollution|carbon|renewable|solar\s+(?:power|panels|energy)|plastic\s+waste|emissions|deforestation)\b`)},
	{"weather", re(`\b(?:weather|forecast|rain(?:ing|y)?|snow(?:ing|y)?|temperature\s+(?:today|tomorrow|outside)|sunny|storms?|hurricane|tornado|humid(?:ity)?)\b`)},
	{"shopping", re(`\b(?:shopping|buy(?:ing)?|purchase|deals?|discounts?|coupons?|cheapest|worth\s+buying|gift\s+ideas?|gift\s+for)\b`)},
	{generators.CategoryComparison, re(`\b(?:vs\.?|versus|compared\s+(?:to|with)|differences?\s+between|compare|which\s+is\s+better|better\s+than)\b`)},
	{generators.CategoryDefinition, re(`^(?:define|definition\s+of|meaning\s+of|what\s+is\s+the\s+(?:meaning|definition)\s+of)\b|\bwhat\s+does\s+.+\s+mean\b`)},
	{generators.CategoryHowTo, re(`^how\s+(?:do|can|should|would)\s+(?:i|you|we|one)\b|\bhow\s+to\b|\bsteps\s+to\b|\bguide\s+(?:to|for)\b|\btutorial\b`)},
	{generators.CategoryBrainstorm, re(`\b(?:brainstorm\w*|ideas?\s+(?:for|about|on)|give\s+me\s+(?:some\s+)?ideas|suggestions?\s+for|name\s+ideas|come\s+up\s+with)\b`)},
	{generators.CategoryRecommendation, re(`\b(?:recommend\w*|suggest\s+(?:a|an|some)|what(?:'s|\s+is|\s+are)\s+the\s+best|best\s+\w+\s+for|good\s+\w+\s+for)\b`)},
	{generators.CategoryOpinion, re(`^(?:should\s+i|is\s+it\s+worth|what\s+do\s+you\s+think|do\s+you\s+think|is\s+it\s+a\s+good\s+idea|would\s+you|what'?s\s+your\s+opinion)\b|\byour\s+opinion\b`)},
	{generators.CategoryExplain, re(`^(?:explain|describe|what\s+(?:is|are|was|were)|what'?s|who\s+(?:is|was|were)|tell\s+me\s+(?:about|more)|why\s+(?:do|does|did|is|are|was|were|can'?t|don'?t)|how\s+(?:does|do|did|is|are)\s+.+\s+work|teach\s+me|help\s+me\s+understand)\b`)},
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}
