package chromium

// snapshotScript returns a compact text outline of the page. With
// interactive set only actionable elements are listed, each tagged with a
// selector that can be passed back to click/fill.
const snapshotScript = `({ interactive, selector }) => {
  const root = selector ? document.querySelector(selector) : document.body;
  if (!root) return "";
  const actionable = "a[href], button, input, select, textarea, summary, [role=button], [role=link], [role=checkbox], [role=tab], [contenteditable=true]";
  const nodes = interactive ? root.querySelectorAll(actionable) : root.querySelectorAll("*");
  const lines = [];
  let ref = 0;
  for (const el of nodes) {
    const style = window.getComputedStyle(el);
    if (style.display === "none" || style.visibility === "hidden") continue;
    const role = el.getAttribute("role") || el.tagName.toLowerCase();
    const label = (el.getAttribute("aria-label") || el.innerText || el.value || el.getAttribute("placeholder") || "").trim().slice(0, 80);
    if (!interactive && !label) continue;
    ref++;
    el.setAttribute("data-ab-ref", String(ref));
    lines.push("- " + role + (label ? " \"" + label.replace(/\s+/g, " ") + "\"" : "") + " [ref=[data-ab-ref=\"" + ref + "\"]]");
  }
  return lines.join("\n");
}`
