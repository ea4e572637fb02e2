package islands

import (
	"encoding/json"
	"fmt"
	"strings"
)

// scriptRecord is the JSON shape consumed by the bootstrap script.
type scriptRecord struct {
	ID       string `json:"id"`
	Entry    string `json:"entry"`
	Props    any    `json:"props"`
	Strategy string `json:"strategy"`
	Media    string `json:"media,omitempty"`
}

// BootstrapScript generates the client-side hydration bootstrap for the
// given records. It returns the empty string when no islands were
// registered, so pages without islands ship no island code at all.
//
// The emitted module hydrates each island per its loading strategy:
// immediately on DOM ready, lazily via an IntersectionObserver once the
// node becomes visible, via an idle callback, or when a media query
// matches. Every mount checks a hydrated marker on the DOM node first so a
// second invocation is a no-op, and each island's hydration attempt is
// isolated: one failed fetch or mount is logged without stopping the rest.
func BootstrapScript(records []Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	rows := make([]scriptRecord, 0, len(records))
	for _, rec := range records {
		rows = append(rows, scriptRecord{
			ID:       rec.ID,
			Entry:    rec.ClientEntry,
			Props:    rec.Props,
			Strategy: rec.Strategy.String(),
			Media:    rec.Media,
		})
	}

	// encoding/json escapes <, >, and & so the payload cannot terminate
	// the surrounding script element.
	payload, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshaling island records: %w", err)
	}

	var b strings.Builder
	b.WriteString("const islands=")
	b.Write(payload)
	b.WriteString(";\n")
	b.WriteString(bootstrapRuntime)
	return b.String(), nil
}

// bootstrapRuntime is the strategy dispatcher shared by every page.
const bootstrapRuntime = `function mount(island){
  const el=document.querySelector('[data-flexi-island-id="'+island.id+'"]');
  if(!el||el.dataset.flexiHydrated==="1")return;
  el.dataset.flexiHydrated="1";
  import(island.entry).then((mod)=>{
    const hydrate=mod.hydrate||mod.default;
    if(typeof hydrate==="function")hydrate(el,island.props);
  }).catch((err)=>{
    delete el.dataset.flexiHydrated;
    console.error("[flexi] island "+island.id+" failed to hydrate",err);
  });
}
function schedule(island){
  const el=document.querySelector('[data-flexi-island-id="'+island.id+'"]');
  if(!el)return;
  switch(island.strategy){
  case "visible":{
    const io=new IntersectionObserver((entries)=>{
      for(const entry of entries){
        if(entry.isIntersecting){io.disconnect();mount(island);return;}
      }
    },{rootMargin:"200px"});
    io.observe(el);
    break;
  }
  case "idle":
    if("requestIdleCallback" in window)requestIdleCallback(()=>mount(island));
    else setTimeout(()=>mount(island),200);
    break;
  case "media":{
    const mq=matchMedia(island.media||"");
    if(mq.matches)mount(island);
    else mq.addEventListener("change",(e)=>{if(e.matches)mount(island);},{once:true});
    break;
  }
  default:
    mount(island);
  }
}
function boot(){for(const island of islands)schedule(island);}
if(document.readyState==="loading")document.addEventListener("DOMContentLoaded",boot);
else boot();
`
