package genre

// Mapping is what a single table key classifies to.
type Mapping struct {
	Categories []Category
	Subgenres  []Subgenre
}

func cats(c ...Category) []Category { return c }
func subs(s ...Subgenre) []Subgenre { return s }

// DefaultTable maps normalized provider tags to categories and subgenres.
// Keys are lowercase with single spaces.
var DefaultTable = map[string]Mapping{
	// ambient and drone
	"ambient":         {cats(Ambient), nil},
	"dark ambient":    {cats(Ambient, Experimental), subs(DarkAmbient)},
	"drone":           {cats(Ambient, Experimental), subs(Drone)},
	"drone ambient":   {cats(Ambient), subs(Drone)},
	"new age":         {cats(Ambient), subs(NewAge)},
	"space ambient":   {cats(Ambient), nil},
	"ambient techno":  {cats(Ambient, Techno), nil},
	"ambient dub":     {cats(Ambient, Reggae), subs(Dub)},
	"chillout":        {cats(Electronic, Ambient), subs(Downtempo)},
	"field recording": {cats(Experimental, Ambient), nil},

	// techno
	"techno":            {cats(Techno), nil},
	"dub techno":        {cats(Techno, Ambient), subs(DubTechno)},
	"minimal techno":    {cats(Techno), subs(MinimalTechno)},
	"minimal":           {cats(Techno), subs(MinimalTechno)},
	"detroit techno":    {cats(Techno), subs(DetroitTechno)},
	"acid techno":       {cats(Techno), subs(AcidTechno)},
	"acid":              {cats(Techno, House), subs(AcidTechno, AcidHouse)},
	"industrial techno": {cats(Techno, Experimental), subs(IndustrialTechno)},
	"hard techno":       {cats(Techno), subs(HardTechno)},
	"schranz":           {cats(Techno), subs(HardTechno)},

	// house
	"house":             {cats(House), nil},
	"deep house":        {cats(House), subs(DeepHouse)},
	"acid house":        {cats(House), subs(AcidHouse)},
	"tech house":        {cats(House, Techno), subs(TechHouse)},
	"progressive house": {cats(House), subs(ProgressiveHouse)},
	"chicago house":     {cats(House), subs(ChicagoHouse)},
	"microhouse":        {cats(House, Techno), subs(Microhouse)},
	"french house":      {cats(House), subs(FrenchHouse)},
	"disco house":       {cats(House, SoulFunk), subs(Disco)},
	"lo-fi house":       {cats(House), subs(LoFi)},

	// broader electronic
	"electronic":              {cats(Electronic), nil},
	"electronica":             {cats(Electronic), nil},
	"electro":                 {cats(Electronic), subs(Electro)},
	"edm":                     {cats(Electronic), nil},
	"dance":                   {cats(Electronic), nil},
	"idm":                     {cats(Electronic, Experimental), subs(IDM)},
	"intelligent dance music": {cats(Electronic, Experimental), subs(IDM)},
	"glitch":                  {cats(Electronic, Experimental), subs(Glitch)},
	"trip hop":                {cats(Electronic, HipHop), subs(TripHop)},
	"trip-hop":                {cats(Electronic, HipHop), subs(TripHop)},
	"downtempo":               {cats(Electronic), subs(Downtempo)},
	"breakbeat":               {cats(Electronic), subs(Breakbeat)},
	"breaks":                  {cats(Electronic), subs(Breakbeat)},
	"synthpop":                {cats(Pop, Electronic), subs(SynthPop)},
	"synth-pop":               {cats(Pop, Electronic), subs(SynthPop)},
	"synthwave":               {cats(Electronic), nil},
	"darkwave":                {cats(Electronic, Rock), subs(Darkwave)},
	"coldwave":                {cats(Electronic, Rock), subs(Darkwave)},
	"minimal wave":            {cats(Electronic), subs(MinimalWave)},
	"ebm":                     {cats(Electronic, Experimental), subs(EBM)},
	"electronic body music":   {cats(Electronic, Experimental), subs(EBM)},
	"industrial":              {cats(Experimental, Electronic), subs(Industrial)},
	"electroclash":            {cats(Electronic, Pop), subs(Electroclash)},
	"vaporwave":               {cats(Electronic, Experimental), subs(Vaporwave)},
	"chillwave":               {cats(Electronic, Indie), subs(Chillwave)},
	"hyperpop":                {cats(Pop, Electronic), subs(Hyperpop)},
	"footwork":                {cats(Electronic, HipHop), subs(Footwork)},
	"uk garage":               {cats(Electronic, House), subs(UKGarage)},
	"2-step":                  {cats(Electronic, House), subs(UKGarage)},
	"grime":                   {cats(HipHop, Electronic), subs(Grime)},
	"trance":                  {cats(Electronic), nil},
	"nu disco":                {cats(House, SoulFunk), subs(NuDisco)},
	"nu-disco":                {cats(House, SoulFunk), subs(NuDisco)},

	// bass music
	"drum and bass": {cats(DrumAndBass), nil},
	"drum & bass":   {cats(DrumAndBass), nil},
	"drum n bass":   {cats(DrumAndBass), nil},
	"dnb":           {cats(DrumAndBass), nil},
	"jungle":        {cats(DrumAndBass), subs(Jungle)},
	"liquid funk":   {cats(DrumAndBass), subs(LiquidFunk)},
	"dubstep":       {cats(Dubstep), nil},
	"future garage": {cats(Dubstep, Electronic), subs(UKGarage)},
	"bass music":    {cats(Dubstep, Electronic), nil},

	// experimental
	"experimental":     {cats(Experimental), nil},
	"noise":            {cats(Experimental), subs(Noise)},
	"musique concrete": {cats(Experimental, Classical), nil},
	"sound art":        {cats(Experimental), nil},
	"avant-garde":      {cats(Experimental), nil},

	// hip-hop, r&b, soul
	"hip hop":              {cats(HipHop), nil},
	"hip-hop":              {cats(HipHop), nil},
	"rap":                  {cats(HipHop), nil},
	"trap":                 {cats(HipHop), subs(Trap)},
	"boom bap":             {cats(HipHop), subs(BoomBap)},
	"abstract hip hop":     {cats(HipHop, Experimental), subs(ExperimentalHipHop)},
	"experimental hip hop": {cats(HipHop, Experimental), subs(ExperimentalHipHop)},
	"instrumental hip hop": {cats(HipHop, Electronic), nil},
	"r&b":                  {cats(RnB), nil},
	"rnb":                  {cats(RnB), nil},
	"rhythm and blues":     {cats(RnB), nil},
	"neo soul":             {cats(RnB, SoulFunk), subs(NeoSoul)},
	"neo-soul":             {cats(RnB, SoulFunk), subs(NeoSoul)},
	"soul":                 {cats(SoulFunk), nil},
	"funk":                 {cats(SoulFunk), nil},
	"disco":                {cats(SoulFunk, Pop), subs(Disco)},

	// pop, rock, indie
	"pop":               {cats(Pop), nil},
	"dream pop":         {cats(Pop, Indie), subs(DreamPop)},
	"art pop":           {cats(Pop, Experimental), nil},
	"indie pop":         {cats(Pop, Indie), nil},
	"rock":              {cats(Rock), nil},
	"indie rock":        {cats(Rock, Indie), nil},
	"indie":             {cats(Indie), nil},
	"alternative":       {cats(Rock, Indie), nil},
	"post-rock":         {cats(Rock, Experimental), subs(PostRock)},
	"post rock":         {cats(Rock, Experimental), subs(PostRock)},
	"shoegaze":          {cats(Rock, Indie), subs(Shoegaze)},
	"krautrock":         {cats(Rock, Experimental), subs(Krautrock)},
	"psychedelic":       {cats(Rock), subs(Psychedelic)},
	"psychedelic rock":  {cats(Rock), subs(Psychedelic)},
	"lo-fi":             {cats(Indie), subs(LoFi)},
	"new wave":          {cats(Rock, Pop), nil},
	"punk":              {cats(Punk), nil},
	"post-punk":         {cats(Punk, Rock), subs(PostPunk)},
	"post punk":         {cats(Punk, Rock), subs(PostPunk)},
	"hardcore punk":     {cats(Punk), subs(Hardcore)},
	"metal":             {cats(Metal), nil},
	"black metal":       {cats(Metal), subs(BlackMetal)},
	"doom metal":        {cats(Metal), subs(DoomMetal)},
	"singer-songwriter": {cats(Folk, Pop), subs(SingerSongwriter)},

	// folk, jazz, classical and the rest
	"folk":                   {cats(Folk), nil},
	"folktronica":            {cats(Folk, Electronic), nil},
	"jazz":                   {cats(Jazz), nil},
	"free jazz":              {cats(Jazz, Experimental), subs(FreeJazz)},
	"nu jazz":                {cats(Jazz, Electronic), nil},
	"classical":              {cats(Classical), nil},
	"modern classical":       {cats(Classical), subs(ModernClassical)},
	"contemporary classical": {cats(Classical), subs(ModernClassical)},
	"neoclassical":           {cats(Classical, Ambient), subs(ModernClassical)},
	"minimalism":             {cats(Classical), subs(Minimalism)},
	"reggae":                 {cats(Reggae), nil},
	"dub":                    {cats(Reggae), subs(Dub)},
	"dancehall":              {cats(Reggae), subs(Dancehall)},
	"country":                {cats(Country), nil},
	"americana":              {cats(Country, Folk), nil},
	"latin":                  {cats(Latin), nil},
	"bossa nova":             {cats(Latin, Jazz), subs(BossaNova)},
	"afrobeat":               {cats(World, SoulFunk), subs(Afrobeat)},
	"world":                  {cats(World), nil},
}
